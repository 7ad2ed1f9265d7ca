package repositories

import (
	"github.com/charmbracelet/log"

	"github.com/desertthunder/godctl/internal/models"
)

// Recorder persists finished enrollment requests through an [EnrollmentRepository].
type Recorder struct {
	repo   models.Repository[*models.Enrollment]
	logger *log.Logger
}

// NewRecorder creates a recorder writing to repo.
func NewRecorder(repo models.Repository[*models.Enrollment], logger *log.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Record stores e.
func (r *Recorder) Record(e *models.Enrollment) error {
	if err := r.repo.Create(e); err != nil {
		return err
	}
	r.logger.Debug("recorded enrollment", "id", e.ID(), "sequence", e.Sequence(), "outcome", e.Outcome())
	return nil
}
