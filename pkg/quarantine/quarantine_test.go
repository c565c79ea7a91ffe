package quarantine_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/memorybrain/pkg/ledger"
	"github.com/openclaw/memorybrain/pkg/quarantine"
)

func newManager(t *testing.T) (*quarantine.Manager, *ledger.Ledger, string) {
	t.Helper()
	dir := t.TempDir()
	led, err := ledger.Load(filepath.Join(dir, "ledger.json"), nil)
	require.NoError(t, err)
	m, err := quarantine.NewManager(filepath.Join(dir, "entities"), "mem_user", led, nil)
	require.NoError(t, err)
	return m, led, dir
}

func TestDiscover(t *testing.T) {
	m, _, _ := newManager(t)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"two-token name", "I met Jane Smith at the conference", []string{"Jane Smith"}},
		{"multiple candidates", "Jane Smith now works at Acme Corp", []string{"Jane Smith", "Acme Corp"}},
		{"sentence starters excluded", "The Big Launch happened. We Should Celebrate", nil},
		{"single capitalized word ignored", "Kubernetes is fine", nil},
		{"dedup keeps first-seen order", "Acme Corp hired Jane Smith. Acme Corp is growing", []string{"Acme Corp", "Jane Smith"}},
		{"no candidates", "nothing capitalized here at all", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Discover(tt.text))
		})
	}
}

func TestDiscoverSkipsKnownNames(t *testing.T) {
	m, _, _ := newManager(t)

	_, err := m.Quarantine("Jane Smith", "intro call")
	require.NoError(t, err)
	assert.Empty(t, m.Discover("Jane Smith called again"), "pending names are not re-discovered")

	_, err = m.Validate("Jane Smith", "", nil)
	require.NoError(t, err)
	assert.Empty(t, m.Discover("Jane Smith called again"), "validated names are not re-discovered")
}

func TestQuarantineWritesChecklistRecord(t *testing.T) {
	m, led, _ := newManager(t)

	rec, err := m.Quarantine("Acme Corp", "mentioned during standup")
	require.NoError(t, err)
	assert.Equal(t, "pending", rec.Status)
	assert.True(t, led.IsPending("Acme Corp"))

	data, err := os.ReadFile(rec.File)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "# Acme Corp (IN QUARANTINE)")
	assert.Contains(t, text, "mentioned during standup")
	assert.Contains(t, text, "- [ ] Confirm entity exists")
}

func TestQuarantineIsIdempotent(t *testing.T) {
	m, led, _ := newManager(t)

	first, err := m.Quarantine("Acme Corp", "first mention")
	require.NoError(t, err)
	second, err := m.Quarantine("Acme Corp", "second mention")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, led.PendingRecords(), 1)
}

func TestValidatePromotesExactlyOnce(t *testing.T) {
	m, led, _ := newManager(t)

	q, err := m.Quarantine("Jane Smith", "met at conference")
	require.NoError(t, err)

	rec, err := m.Validate("Jane Smith", "mem_projects", []string{"jane", "smith"})
	require.NoError(t, err)
	assert.Equal(t, "mem_projects", rec.Collection)
	assert.Equal(t, []string{"jane", "smith"}, rec.Keywords)

	// State flipped: pending gone, validated present, file moved.
	assert.False(t, led.IsPending("Jane Smith"))
	assert.True(t, led.IsValidated("Jane Smith"))
	assert.NoFileExists(t, q.File)

	data, err := os.ReadFile(rec.File)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "# Jane Smith (VALIDATED)")
	assert.Contains(t, text, "Target Collection: mem_projects")
	assert.NotContains(t, text, "(IN QUARANTINE)")

	// Second validation of the same name fails cleanly.
	_, err = m.Validate("Jane Smith", "mem_projects", nil)
	assert.ErrorIs(t, err, quarantine.ErrNotFound)
}

func TestValidateDefaultsCollection(t *testing.T) {
	m, _, _ := newManager(t)
	_, err := m.Quarantine("Acme Corp", "")
	require.NoError(t, err)

	rec, err := m.Validate("Acme Corp", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "mem_user", rec.Collection)
}

func TestValidateUnknownName(t *testing.T) {
	m, _, _ := newManager(t)
	_, err := m.Validate("Nobody Here", "", nil)
	assert.ErrorIs(t, err, quarantine.ErrNotFound)
}

func TestReject(t *testing.T) {
	m, led, _ := newManager(t)

	q, err := m.Quarantine("Acme Corp", "")
	require.NoError(t, err)
	require.NoError(t, m.Reject("Acme Corp"))

	assert.False(t, led.IsPending("Acme Corp"))
	assert.False(t, led.IsValidated("Acme Corp"))
	assert.NoFileExists(t, q.File)

	assert.ErrorIs(t, m.Reject("Acme Corp"), quarantine.ErrNotFound)
}

func TestList(t *testing.T) {
	m, _, _ := newManager(t)
	assert.Empty(t, m.List())

	_, err := m.Quarantine("Jane Smith", "")
	require.NoError(t, err)
	_, err = m.Quarantine("Acme Corp", "")
	require.NoError(t, err)

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, "Jane Smith", list[0].Name)
	assert.Equal(t, "Acme Corp", list[1].Name)
}
