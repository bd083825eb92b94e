package envelope

import (
	"fmt"

	"github.com/orchestrix/tracksync/internal/core/domain"
)

// Step names the pipeline stage a queue belongs to.
type Step string

const (
	StepExtraction Step = "extraction"
	StepTransform  Step = "transform"
	StepEmbedding  Step = "embedding"
)

// QueueName implements the router rule: publish(step, tenant_id, msg) ->
// queue := step + "_queue_" + tier_of(tenant_id).
func QueueName(step Step, tier domain.Tier) string {
	return fmt.Sprintf("%s_queue_%s", step, tier)
}
