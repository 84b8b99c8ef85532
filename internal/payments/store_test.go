package payments

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBuildBatchInsert_ParameterizesEachRow(t *testing.T) {
	batch := []ProcessedPayment{
		{Payment: Payment{CorrelationID: uuid.New(), Amount: 10, RequestedAt: time.Now()}, Processor: ProcessorDefault},
		{Payment: Payment{CorrelationID: uuid.New(), Amount: 20, RequestedAt: time.Now()}, Processor: ProcessorFallback},
	}

	query, args := buildBatchInsert(batch)

	assert.Contains(t, query, "VALUES ($1, $2, $3, $4), ($5, $6, $7, $8)")
	assert.Contains(t, query, "ON CONFLICT (correlation_id) DO NOTHING")
	assert.Len(t, args, 8)
	assert.Equal(t, batch[0].CorrelationID, args[0])
	assert.Equal(t, string(ProcessorFallback), args[5])
}

func TestBuildBatchInsert_SingleRow(t *testing.T) {
	batch := []ProcessedPayment{
		{Payment: Payment{CorrelationID: uuid.New(), Amount: 100}, Processor: ProcessorDefault},
	}

	query, args := buildBatchInsert(batch)

	assert.Contains(t, query, "VALUES ($1, $2, $3, $4)")
	assert.Len(t, args, 4)
}
