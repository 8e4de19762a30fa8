package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitialAckStatus(t *testing.T) {
	assert.Equal(t, AckStatusOpen, InitialAckStatus(AlertKindFailure))
	assert.Equal(t, AckStatusNotRequired, InitialAckStatus(AlertKindResolved))
}

func TestToSummaryFillsMissingAckStatus(t *testing.T) {
	failure := AlertLog{Kind: AlertKindFailure}
	resolved := AlertLog{Kind: AlertKindResolved}

	assert.Equal(t, AckStatusOpen, failure.ToSummary().AcknowledgmentStatus)
	assert.Equal(t, AckStatusNotRequired, resolved.ToSummary().AcknowledgmentStatus)
}
