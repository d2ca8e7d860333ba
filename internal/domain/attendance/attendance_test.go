package attendance

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, in := range []string{"present", "Present", " PRESENT "} {
		st, err := ParseStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, StatusPresent, st)
	}

	st, err := ParseStatus("Absent")
	require.NoError(t, err)
	assert.Equal(t, StatusAbsent, st)

	_, err = ParseStatus("late")
	assert.Error(t, err)
	_, err = ParseStatus("")
	assert.Error(t, err)
}

func TestDefaultStatusIsAbsent(t *testing.T) {
	assert.Equal(t, StatusAbsent, DefaultStatus)
}

func TestTallyAndMarked(t *testing.T) {
	s1, s2, s3 := uuid.New(), uuid.New(), uuid.New()
	records := []*Record{
		{StudentID: s1, Status: StatusPresent},
		{StudentID: s2, Status: StatusAbsent},
		{StudentID: s3, Status: StatusPresent},
	}

	var tally Tally
	for _, r := range records {
		tally.Add(r.Status)
	}
	assert.Equal(t, Tally{Present: 2, Absent: 1}, tally)

	marked := Marked(records)
	assert.Len(t, marked, 3)
	assert.Equal(t, StatusAbsent, marked[s2])
}
