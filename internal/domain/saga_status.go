package domain

import "encoding/json"

// UnmarshalJSON decodes a status string defensively: anything that isn't
// one of the known variants becomes Failed rather than an error, so a
// saga row written by a future version of this service (or corrupted by
// hand) still loads as something the orchestrator can act on.
func (s *SagaStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch SagaStatus(raw) {
	case SagaStarted, SagaInProgress, SagaCompleted, SagaCompensating, SagaCompensated, SagaFailed:
		*s = SagaStatus(raw)
	default:
		*s = SagaFailed
	}
	return nil
}
