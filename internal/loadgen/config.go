// Package loadgen drives a running container timing service with random
// page layouts and paint batches, then checks the reports it produced.
package loadgen

import (
	"time"

	"github.com/okian/containertiming/internal/domain/geometry"
	"github.com/okian/containertiming/internal/domain/model"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Containers int           // Number of container roots in the layout
	Children   int           // Painted descendants per container
	Batches    int           // Number of paint batches to submit
	Workers    int           // Concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	Settle     time.Duration // Wait for the queue to drain before verifying
	Seed       int64         // Layout and batch RNG seed; 0 picks one
	Strategy   string        // Strategy the service runs, for verification
	OutputFile string        // Optional JSON dump of the generated run
	Verbose    bool          // Enable verbose logging
}

// BatchRequest mirrors the body of POST /v1/batches.
type BatchRequest struct {
	BatchID string           `json:"batch_id"`
	Seq     uint64           `json:"seq"`
	Entries []model.RawEntry `json:"entries"`
}

// AckResponse mirrors the batch submission response.
type AckResponse struct {
	Status    string `json:"status"`
	BatchID   string `json:"batch_id"`
	Duplicate bool   `json:"duplicate"`
}

// DOMResponse mirrors the mutation response.
type DOMResponse struct {
	Applied      int      `json:"applied"`
	Internal     int      `json:"internal"`
	UserSupplied int      `json:"user_supplied"`
	Errors       []string `json:"errors"`
}

// ContainerReport is the client-side view of a stored report.
type ContainerReport struct {
	Seq        uint64 `json:"seq"`
	Identifier string `json:"identifier"`
	Strategy   string `json:"strategy"`
	Entry      struct {
		Identifier            string          `json:"identifier"`
		Size                  float64         `json:"size"`
		RenderTime            *float64        `json:"renderTime"`
		IntersectionRect      *geometry.Rect  `json:"intersectionRect"`
		PaintedRects          []geometry.Rect `json:"paintedRects"`
		LastPaintedSubElement string          `json:"lastPaintedSubElement"`
		VisuallyCompletePaint *struct {
			RenderTime float64 `json:"renderTime"`
		} `json:"visuallyCompletePaint"`
	} `json:"entry"`
}

// Stats holds run statistics.
type Stats struct {
	ElementsInserted   int
	ElementsTagged     int
	BatchesGenerated   int
	BatchesAccepted    int
	BatchesDuplicate   int
	BatchesRejected    int
	BatchesFailed      int
	ContainersPainted  int
	ContainersReported int
	Violations         int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
