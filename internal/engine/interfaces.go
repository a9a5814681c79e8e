package engine

import (
	"context"

	"github.com/mbagrov/bimtally/internal/model"
	"github.com/mbagrov/bimtally/internal/navisworks"
)

// AIService is the language-model collaborator: group suggestion for the
// reconciler's AI tier and structured extraction for the query front-end.
// *llm.Matcher implements it.
type AIService interface {
	SuggestGroup(ctx context.Context, name string, labels []string) (string, error)
	ExtractQuery(ctx context.Context, text string) (model.QuerySpec, error)
}

// ClashService is the Navisworks collaborator. *navisworks.Client
// implements it.
type ClashService interface {
	GetStatus(ctx context.Context) (*navisworks.Status, error)
	Clashes(ctx context.Context, filter string) (*navisworks.ClashList, error)
	RunClash(ctx context.Context, testName string) (*navisworks.ClashRun, error)
	Volumes(ctx context.Context, category string) (*navisworks.VolumeReport, error)
	Aggregate(ctx context.Context, inputs []string, outputPath string) (*navisworks.AggregateResult, error)
}
