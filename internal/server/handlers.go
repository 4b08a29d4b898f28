package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rshade/freightfocus/internal/engine"
	"github.com/rshade/freightfocus/internal/ingest"
)

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleEstimates runs a batch estimate over the posted shipment records.
// The body accepts the same formats as file input: a JSON array, an
// extractor document, or NDJSON. Records that cannot be mapped land in the
// batch errors; only an unreadable payload fails the whole request.
func (s *Server) handleEstimates(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reading request body: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	records, err := ingest.ParseRecordsWithContext(ctx, data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	shipments, issues := ingest.MapRecords(ctx, records)

	batch, err := s.estimator.EstimateBatch(ctx, shipments)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "estimation failed"})
		return
	}
	for _, issue := range issues {
		batch.Errors = append(batch.Errors, engine.ErrorDetail{
			Reference: issue.Reference,
			Message:   issue.Err.Error(),
		})
	}

	c.JSON(http.StatusOK, batch)
}

// resolveRequest is the body for the resolve debug endpoint.
type resolveRequest struct {
	Identifier string `json:"identifier"`
}

// handleResolveLocation resolves a single identifier. Lookup failures are
// part of the answer, not HTTP errors: the resolution carries its failure
// reason and the request still succeeds.
func (s *Server) handleResolveLocation(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON object with an 'identifier' field"})
		return
	}
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identifier must not be blank"})
		return
	}

	resolution := s.resolver.Resolve(c.Request.Context(), identifier)
	c.JSON(http.StatusOK, resolution)
}
