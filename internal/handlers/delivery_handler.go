package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"crm-messaging-server/internal/models"
	"crm-messaging-server/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DeliveryHandler is the webhook ingress for vendor delivery reports. The
// vendor retries on non-2xx responses, so per-item failures must still be
// acknowledged with 200; only a malformed payload (400) or a store outage
// (500) returns non-2xx.
type DeliveryHandler struct {
	service DeliveryServiceInterface
}

// NewDeliveryHandler creates a new delivery-report handler
func NewDeliveryHandler(service DeliveryServiceInterface) *DeliveryHandler {
	return &DeliveryHandler{service: service}
}

// HandleGet handles GET /webhooks/delivery-report: a single report encoded
// as query parameters.
func (h *DeliveryHandler) HandleGet(c *gin.Context) {
	report, ok := reportFromQuery(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "externalId is required",
		})
		return
	}

	h.process(c, []models.DeliveryReport{report})
}

// HandlePost handles POST /webhooks/delivery-report. The body is either a
// single report object or a {"response": [...]} batch; both shapes collapse
// to one report slice before processing.
func (h *DeliveryHandler) HandlePost(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "failed to read request body",
		})
		return
	}

	reports, ok := reportsFromBody(body)
	if !ok {
		logger.Warn("Malformed delivery report payload", zap.Int("body_bytes", len(body)))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "malformed delivery report payload",
		})
		return
	}

	if len(reports) > models.MaxDeliveryBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "batch exceeds maximum size of 20",
		})
		return
	}

	h.process(c, reports)
}

func (h *DeliveryHandler) process(c *gin.Context, reports []models.DeliveryReport) {
	result, err := h.service.ProcessReports(c.Request.Context(), reports)
	if err != nil {
		logger.Error("Delivery report batch failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "failed to process delivery reports",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"processed": result.Processed,
		"failed":    result.Failed,
		"total":     result.Total,
	})
}

// reportFromQuery decodes the query-string flavor of a delivery report.
func reportFromQuery(c *gin.Context) (models.DeliveryReport, bool) {
	report := models.DeliveryReport{
		ExternalID: c.Query("externalId"),
		EventType:  c.Query("status"),
		Cause:      c.Query("cause"),
		ErrCode:    c.Query("errCode"),
		DestAddr:   c.Query("phoneNo"),
		Mask:       c.Query("mask"),
	}
	if report.ExternalID == "" {
		return report, false
	}

	if ts := c.Query("deliveredTS"); ts != "" {
		if v, err := strconv.ParseInt(ts, 10, 64); err == nil {
			report.DeliveredTS = v
		}
	}
	if frags := c.Query("noOfFrags"); frags != "" {
		if v, err := strconv.Atoi(frags); err == nil {
			report.NoOfFrags = v
		}
	}

	return report, true
}

// reportsFromBody decodes the two JSON flavors. A body with neither a
// response array nor a recognizable single report is malformed.
func reportsFromBody(body []byte) ([]models.DeliveryReport, bool) {
	var batch models.DeliveryReportBatch
	if err := json.Unmarshal(body, &batch); err == nil && batch.Response != nil {
		return batch.Response, true
	}

	var single models.DeliveryReport
	if err := json.Unmarshal(body, &single); err == nil && single.ExternalID != "" {
		return []models.DeliveryReport{single}, true
	}

	return nil, false
}
