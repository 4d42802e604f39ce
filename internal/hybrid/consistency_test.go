package hybrid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDoctor(t *testing.T) (*Doctor, *Engine) {
	t.Helper()
	e := newTestEngine(t)
	return NewDoctor(e.memory, e.vector, e.text), e
}

func TestDoctorCheckFindsNoIssuesWhenConsistent(t *testing.T) {
	d, e := newTestDoctor(t)
	ctx := context.Background()

	require.NoError(t, e.Store(ctx, newMemory("m1", "t", "c", unitVector(testDims, 0))))

	result, err := d.Check(ctx)
	require.NoError(t, err)
	require.Empty(t, result.Inconsistencies)
	require.Equal(t, 1, result.Checked)
}

func TestDoctorCheckDetectsOrphanVector(t *testing.T) {
	d, e := newTestDoctor(t)
	ctx := context.Background()

	require.NoError(t, e.vector.Upsert(ctx, "ghost", unitVector(testDims, 0)))

	result, err := d.Check(ctx)
	require.NoError(t, err)
	require.Len(t, result.Inconsistencies, 1)
	require.Equal(t, InconsistencyOrphanVector, result.Inconsistencies[0].Type)
	require.Equal(t, "ghost", result.Inconsistencies[0].MemoryID)
}

func TestDoctorCheckDetectsMissingVector(t *testing.T) {
	d, e := newTestDoctor(t)
	ctx := context.Background()

	require.NoError(t, e.Store(ctx, newMemory("m1", "t", "c", unitVector(testDims, 0))))
	require.NoError(t, e.vector.Delete(ctx, []string{"m1"}))

	result, err := d.Check(ctx)
	require.NoError(t, err)
	require.Len(t, result.Inconsistencies, 1)
	require.Equal(t, InconsistencyMissingVector, result.Inconsistencies[0].Type)
}

func TestDoctorRepairDeletesOrphansAndLeavesAuthoritativeStoreAlone(t *testing.T) {
	d, e := newTestDoctor(t)
	ctx := context.Background()

	require.NoError(t, e.text.Index(ctx, "orphan", "t", "c"))

	result, err := d.Check(ctx)
	require.NoError(t, err)
	require.NoError(t, d.Repair(ctx, result.Inconsistencies))

	result2, err := d.Check(ctx)
	require.NoError(t, err)
	require.Empty(t, result2.Inconsistencies)
}

func TestDoctorQuickCheckDetectsCountMismatch(t *testing.T) {
	d, e := newTestDoctor(t)
	ctx := context.Background()

	require.NoError(t, e.Store(ctx, newMemory("m1", "t", "c", unitVector(testDims, 0))))

	ok, err := d.QuickCheck(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, e.vector.Delete(ctx, []string{"m1"}))
	ok, err = d.QuickCheck(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}
