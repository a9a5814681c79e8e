package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbagrov/bimtally/internal/common"
)

// fakeExec answers ExecuteCode from sequential response/error slices and
// records every snippet it was asked to run.
type fakeExec struct {
	mu        sync.Mutex
	codes     []string
	responses []string
	errors    []error
	calls     int
}

func (f *fakeExec) ExecuteCode(_ context.Context, code, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx := f.calls
	f.calls++
	f.codes = append(f.codes, code)

	if idx < len(f.errors) && f.errors[idx] != nil {
		return "", f.errors[idx]
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return "", fmt.Errorf("fakeExec: unexpected call %d", idx)
}

func newTestAuditor(fake *fakeExec) *Auditor {
	return NewAuditor(fake, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAuditor_Run_AllChecks(t *testing.T) {
	// Six volume-bearing categories split into two batches, then one call
	// each for levels and duplicates.
	fake := &fakeExec{responses: []string{
		`[{"type": "zero_volume", "category": "Walls", "element_id": 101, "description": "Element has zero or no volume computed"}]`,
		`[]`,
		`[{"type": "missing_level", "category": "Doors", "element_id": 202, "description": "Element has no associated level"}]`,
		`[{"type": "duplicate_elements", "element_id": 303, "duplicate_of": 300, "description": "Possible duplicate element at same location and type"}]`,
	}}

	report, err := newTestAuditor(fake).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 4, fake.calls)

	require.Len(t, report.Issues, 3)
	zero := report.Issues[0]
	assert.Equal(t, CheckZeroVolume, zero.Check)
	assert.Equal(t, "Walls", zero.Category)
	assert.Equal(t, int64(101), zero.ElementID)
	assert.Equal(t, SeverityWarning, zero.Severity)

	dup := report.Issues[2]
	assert.Equal(t, CheckDuplicates, dup.Check)
	assert.Equal(t, int64(300), dup.DuplicateOf)

	assert.Equal(t, 3, report.Summary.TotalIssues)
	assert.Equal(t, map[string]int{
		CheckZeroVolume:   1,
		CheckMissingLevel: 1,
		CheckDuplicates:   1,
	}, report.Summary.ByCheck)
	assert.Equal(t, []string{CheckZeroVolume, CheckMissingLevel, CheckDuplicates}, report.Summary.ChecksRun)

	// First batch covers the head of the registry, second its tail.
	assert.Contains(t, fake.codes[0], "OST_Walls")
	assert.Contains(t, fake.codes[0], "HOST_VOLUME_COMPUTED")
	assert.Contains(t, fake.codes[1], "OST_StructuralFoundation")
	assert.Contains(t, fake.codes[2], "OST_Doors")
	assert.Contains(t, fake.codes[2], "LevelId")
	assert.Contains(t, fake.codes[3], "GetTypeId")
}

func TestAuditor_Run_SelectedCheck(t *testing.T) {
	fake := &fakeExec{responses: []string{
		`[{"type": "duplicate_elements", "element_id": 404, "duplicate_of": 400,
		   "description": "Possible duplicate element at same location and type", "severity": "error"}]`,
	}}

	report, err := newTestAuditor(fake).Run(context.Background(), []string{CheckDuplicates})
	require.NoError(t, err)
	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, []string{CheckDuplicates}, report.Summary.ChecksRun)

	require.Len(t, report.Issues, 1)
	// Host-supplied severity wins over the default.
	assert.Equal(t, SeverityError, report.Issues[0].Severity)
}

func TestAuditor_Run_AllKeywordExpands(t *testing.T) {
	fake := &fakeExec{responses: []string{`[]`, `[]`, `[]`, `[]`}}

	report, err := newTestAuditor(fake).Run(context.Background(), []string{"all", CheckZeroVolume})
	require.NoError(t, err)
	assert.Equal(t, 4, fake.calls)
	assert.Equal(t, []string{CheckZeroVolume, CheckMissingLevel, CheckDuplicates}, report.Summary.ChecksRun)
	assert.Zero(t, report.Summary.TotalIssues)
	assert.Empty(t, report.Issues)
}

func TestAuditor_Run_UnknownCheck(t *testing.T) {
	fake := &fakeExec{}

	_, err := newTestAuditor(fake).Run(context.Background(), []string{CheckZeroVolume, "bad_check"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "bad_check")
	assert.Zero(t, fake.calls, "nothing should reach the host on a bad check name")
}

func TestAuditor_Run_CheckFailureBecomesFinding(t *testing.T) {
	fake := &fakeExec{
		errors: []error{errors.New("host down"), nil, nil, nil},
		responses: []string{
			"",
			`[]`,
			`[]`,
			`[{"type": "duplicate_elements", "element_id": 505, "duplicate_of": 500, "description": "Possible duplicate element at same location and type"}]`,
		},
	}

	report, err := newTestAuditor(fake).Run(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, report.Issues, 2)
	failure := report.Issues[0]
	assert.Equal(t, CheckError, failure.Check)
	assert.Equal(t, SeverityError, failure.Severity)
	assert.Contains(t, failure.Description, "zero_volume check failed")
	assert.Contains(t, failure.Description, "host down")

	assert.Equal(t, CheckDuplicates, report.Issues[1].Check)
	assert.Equal(t, map[string]int{CheckError: 1, CheckDuplicates: 1}, report.Summary.ByCheck)
}

func TestAuditor_Run_UnparseableOutput(t *testing.T) {
	fake := &fakeExec{responses: []string{"Traceback (most recent call last)"}}

	report, err := newTestAuditor(fake).Run(context.Background(), []string{CheckDuplicates})
	require.NoError(t, err)

	require.Len(t, report.Issues, 1)
	assert.Equal(t, CheckError, report.Issues[0].Check)
	assert.Contains(t, report.Issues[0].Description, "duplicate_elements check failed")
}

func TestCheckNames(t *testing.T) {
	names := CheckNames()
	assert.Equal(t, []string{CheckZeroVolume, CheckMissingLevel, CheckDuplicates}, names)

	names[0] = "mutated"
	assert.Equal(t, CheckZeroVolume, CheckNames()[0])
}
