package port

import (
	"fmt"

	"github.com/google/uuid"
)

// SyncCycleWorkflowID is the one-instance-per-integration Temporal workflow
// ID convention shared by the C13 executor (which starts/signals it) and
// the extraction worker pool (which signals it back on job completion).
func SyncCycleWorkflowID(tenantID, integrationID uuid.UUID) string {
	return fmt.Sprintf("sync-cycle-%s-%s", tenantID, integrationID)
}
