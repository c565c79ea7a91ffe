package vector_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openclaw/memorybrain/pkg/vector"
)

func validPayload() vector.Payload {
	return vector.Payload{
		Content:     "chunk text",
		ChunkIndex:  0,
		TotalChunks: 1,
		Tier:        "working",
		Collection:  "mem_sessions",
		SourceFile:  "2026-02-03.md",
		StoredAt:    time.Now(),
	}
}

func TestPayloadValidate(t *testing.T) {
	p := validPayload()
	assert.NoError(t, p.Validate())

	p = validPayload()
	p.Content = ""
	assert.Error(t, p.Validate())

	p = validPayload()
	p.Collection = ""
	assert.Error(t, p.Validate())

	p = validPayload()
	p.ChunkIndex = 1 // out of range for a single chunk
	assert.Error(t, p.Validate())

	p = validPayload()
	p.TotalChunks = 0
	assert.Error(t, p.Validate())

	p = validPayload()
	p.ChunkIndex, p.TotalChunks = 2, 3
	assert.NoError(t, p.Validate())
}

func TestToFloat32(t *testing.T) {
	assert.Equal(t, []float32{0.5, 1, -2}, vector.ToFloat32([]float64{0.5, 1, -2}))
	assert.Empty(t, vector.ToFloat32(nil))
}
