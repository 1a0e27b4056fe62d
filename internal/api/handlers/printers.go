package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xpertbrdev/thermal-print-service/internal/core"
	"github.com/xpertbrdev/thermal-print-service/internal/printer"
	"github.com/xpertbrdev/thermal-print-service/internal/printers"
)

type PrinterRequest struct {
	ID               string `json:"id" binding:"required"`
	Name             string `json:"name" binding:"required"`
	Type             string `json:"type"`
	ConnectionType   string `json:"connectionType"`
	Address          string `json:"address" binding:"required"`
	WidthMM          int    `json:"width"`
	PrintableWidthMM int    `json:"printableWidth"`
	CharPerLine      int    `json:"charPerLine"`
	CharacterSet     string `json:"characterSet"`
	TimeoutMS        int    `json:"timeout"`
}

type ReplacePrintersRequest struct {
	Printers []PrinterRequest `json:"printers" binding:"required"`
}

type PrinterResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	ConnectionType   string    `json:"connectionType"`
	Address          string    `json:"address"`
	WidthMM          int       `json:"width"`
	PrintableWidthMM int       `json:"printableWidth"`
	CharPerLine      int       `json:"charPerLine"`
	CharacterSet     string    `json:"characterSet"`
	TimeoutMS        int       `json:"timeout"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type DirectPrintRequest struct {
	PrinterID string             `json:"printerId" binding:"required"`
	Content   []core.ContentItem `json:"content" binding:"required"`
}

var validPrinterTypes = map[string]bool{
	printers.TypeEpson:   true,
	printers.TypeStar:    true,
	printers.TypeBrother: true,
	printers.TypeTanca:   true,
	printers.TypeDaruma:  true,
	printers.TypeCustom:  true,
}

var validConnectionTypes = map[string]bool{
	printers.ConnectionNetwork: true,
	printers.ConnectionUSB:     true,
	printers.ConnectionSerial:  true,
}

type PrinterHandler struct {
	store    *printers.Store
	executor *printer.Executor
}

func NewPrinterHandler(store *printers.Store, executor *printer.Executor) *PrinterHandler {
	return &PrinterHandler{
		store:    store,
		executor: executor,
	}
}

func (h *PrinterHandler) ListPrinters(c *gin.Context) {
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list printers")
		return
	}

	responses := make([]PrinterResponse, 0, len(list))
	for _, p := range list {
		responses = append(responses, printerToResponse(p))
	}
	respondData(c, http.StatusOK, responses)
}

func (h *PrinterHandler) GetPrinter(c *gin.Context) {
	p, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, printers.ErrNotFound) {
			respondError(c, http.StatusNotFound, "printer not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to get printer")
		return
	}

	respondData(c, http.StatusOK, printerToResponse(p))
}

// ReplacePrinters swaps the whole printer configuration atomically.
// Queues for printers that disappear keep draining; they just stop
// receiving new jobs.
func (h *PrinterHandler) ReplacePrinters(c *gin.Context) {
	var req ReplacePrintersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	list := make([]*printers.Printer, 0, len(req.Printers))
	seen := make(map[string]bool, len(req.Printers))
	for i, pr := range req.Printers {
		if seen[pr.ID] {
			respondError(c, http.StatusBadRequest, fmt.Sprintf("printers[%d]: duplicate id %s", i, pr.ID))
			return
		}
		seen[pr.ID] = true

		p, err := requestToPrinter(pr)
		if err != nil {
			respondError(c, http.StatusBadRequest, fmt.Sprintf("printers[%d]: %v", i, err))
			return
		}
		list = append(list, p)
	}

	if err := h.store.ReplaceAll(c.Request.Context(), list); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to save printers")
		return
	}

	respondMessage(c, http.StatusOK, fmt.Sprintf("%d printer(s) configured", len(list)))
}

func (h *PrinterHandler) UpdatePrinter(c *gin.Context) {
	var req PrinterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	req.ID = c.Param("id")
	if req.ID == "" {
		respondError(c, http.StatusBadRequest, "printer id is required")
		return
	}

	p, err := requestToPrinter(req)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Save(c.Request.Context(), p); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to save printer")
		return
	}

	respondData(c, http.StatusOK, printerToResponse(p))
}

func (h *PrinterHandler) DeletePrinter(c *gin.Context) {
	err := h.store.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, printers.ErrNotFound) {
			respondError(c, http.StatusNotFound, "printer not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to delete printer")
		return
	}

	respondMessage(c, http.StatusOK, "printer deleted")
}

func (h *PrinterHandler) GetSettings(c *gin.Context) {
	respondData(c, http.StatusOK, printers.Defaults())
}

// DirectPrint bypasses the queue and transmits immediately. Failures
// surface synchronously; nothing is recorded in the job table.
func (h *PrinterHandler) DirectPrint(c *gin.Context) {
	var req DirectPrintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := core.ValidateContent(req.Content); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.executor.Print(c.Request.Context(), req.PrinterID, req.Content); err != nil {
		if errors.Is(err, printers.ErrNotFound) {
			respondError(c, http.StatusNotFound, "printer not found")
			return
		}
		respondError(c, http.StatusBadGateway, err.Error())
		return
	}

	respondMessage(c, http.StatusOK, "content printed")
}

func (h *PrinterHandler) TestPrinter(c *gin.Context) {
	printerID := c.Query("printerId")
	if printerID == "" {
		respondError(c, http.StatusBadRequest, "printerId is required")
		return
	}

	ok, err := h.executor.TestConnection(c.Request.Context(), printerID)
	if err != nil && errors.Is(err, printers.ErrNotFound) {
		respondError(c, http.StatusNotFound, "printer not found")
		return
	}

	result := gin.H{
		"printerId": printerID,
		"connected": ok,
	}
	if err != nil {
		result["error"] = err.Error()
	}
	respondData(c, http.StatusOK, result)
}

func requestToPrinter(req PrinterRequest) (*printers.Printer, error) {
	if req.Type != "" && !validPrinterTypes[req.Type] {
		return nil, fmt.Errorf("unknown printer type %q", req.Type)
	}
	if req.ConnectionType != "" && !validConnectionTypes[req.ConnectionType] {
		return nil, fmt.Errorf("unknown connection type %q", req.ConnectionType)
	}

	return &printers.Printer{
		ID:               req.ID,
		Name:             req.Name,
		Type:             req.Type,
		ConnectionType:   req.ConnectionType,
		Address:          req.Address,
		WidthMM:          req.WidthMM,
		PrintableWidthMM: req.PrintableWidthMM,
		CharPerLine:      req.CharPerLine,
		CharacterSet:     req.CharacterSet,
		Timeout:          time.Duration(req.TimeoutMS) * time.Millisecond,
	}, nil
}

func printerToResponse(p *printers.Printer) PrinterResponse {
	return PrinterResponse{
		ID:               p.ID,
		Name:             p.Name,
		Type:             p.Type,
		ConnectionType:   p.ConnectionType,
		Address:          p.Address,
		WidthMM:          p.WidthMM,
		PrintableWidthMM: p.PrintableWidthMM,
		CharPerLine:      p.CharPerLine,
		CharacterSet:     p.CharacterSet,
		TimeoutMS:        int(p.Timeout / time.Millisecond),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func RegisterPrinterRoutes(r *gin.RouterGroup, h *PrinterHandler) {
	r.GET("/config/printers", h.ListPrinters)
	r.POST("/config/printers", h.ReplacePrinters)
	r.GET("/config/printers/:id", h.GetPrinter)
	r.PUT("/config/printers/:id", h.UpdatePrinter)
	r.DELETE("/config/printers/:id", h.DeletePrinter)
	r.GET("/config/settings", h.GetSettings)
	r.POST("/printers/print", h.DirectPrint)
	r.GET("/printers/test", h.TestPrinter)
}
