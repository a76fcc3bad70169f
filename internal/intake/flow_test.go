package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/biabot/internal/domain"
)

func TestBuildQueueOrder(t *testing.T) {
	t.Parallel()

	queue := BuildQueue(DefaultOptions(DefaultServiceOptions), "Press release")
	require.Len(t, queue, len(CoreQuestions)+len(pressBranch)+1)
	assert.Equal(t, "project_title", queue[0].ID)
	assert.Equal(t, "announcement_summary", queue[len(CoreQuestions)].ID)
	assert.Equal(t, UploadQuestionID, queue[len(queue)-1].ID)
	assert.False(t, queue[len(queue)-1].Required)
}

func TestBuildQueueFallsBackToOther(t *testing.T) {
	t.Parallel()

	queue := BuildQueue(DefaultOptions(nil), "Podcast episode")
	assert.Equal(t, "open_description", queue[len(CoreQuestions)].ID)
}

func TestBuildQueueEmpty(t *testing.T) {
	t.Parallel()

	opts := domain.IntakeOptions{BranchQuestions: map[string][]domain.Question{}}
	assert.Nil(t, BuildQueue(opts, "Custom graphic"))
}

func TestEveryServiceHasBranch(t *testing.T) {
	t.Parallel()

	for _, svc := range DefaultServiceOptions {
		assert.NotEmpty(t, BranchQuestions[svc], "service %q", svc)
	}
}
