package resolution

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// encodePayload builds the payload map with every field required by
// spec §4.3: counters as 64-bit integers, timestamps as RFC3339
// strings, identifiers as strings.
func encodePayload(p Pattern) map[string]*qdrant.Value {
	return map[string]*qdrant.Value{
		"id":                 qdrant.NewValueString(p.ID),
		"conflict_signature": qdrant.NewValueString(p.ConflictSignature),
		"file_path":          qdrant.NewValueString(p.FilePath),
		"resolution":         qdrant.NewValueString(p.Resolution),
		"success_count":      qdrant.NewValueInt(p.SuccessCount),
		"failure_count":      qdrant.NewValueInt(p.FailureCount),
		"created_at":         qdrant.NewValueString(p.CreatedAt.Format(time.RFC3339)),
		"last_used_at":       qdrant.NewValueString(p.LastUsedAt.Format(time.RFC3339)),
		"source_commit":      qdrant.NewValueString(p.SourceCommit),
		"target_branch":      qdrant.NewValueString(p.TargetBranch),
	}
}

// decodePayload reconstructs a Pattern from a query payload, checking
// every field for presence and type. Any missing or malformed field
// fails with ErrPayloadMalformed naming the offending field — this is
// never a silent fallback.
func decodePayload(payload map[string]*qdrant.Value) (Pattern, error) {
	idStr, err := payloadString(payload, "id")
	if err != nil {
		return Pattern{}, err
	}
	if _, err := uuid.Parse(idStr); err != nil {
		return Pattern{}, fmt.Errorf("%w: id %q is not a valid UUID", ErrPayloadMalformed, idStr)
	}

	signature, err := payloadString(payload, "conflict_signature")
	if err != nil {
		return Pattern{}, err
	}
	filePath, err := payloadString(payload, "file_path")
	if err != nil {
		return Pattern{}, err
	}
	resolutionText, err := payloadString(payload, "resolution")
	if err != nil {
		return Pattern{}, err
	}
	sourceCommit, err := payloadString(payload, "source_commit")
	if err != nil {
		return Pattern{}, err
	}
	targetBranch, err := payloadString(payload, "target_branch")
	if err != nil {
		return Pattern{}, err
	}

	successCount, err := payloadInt(payload, "success_count")
	if err != nil {
		return Pattern{}, err
	}
	failureCount, err := payloadInt(payload, "failure_count")
	if err != nil {
		return Pattern{}, err
	}

	createdAtStr, err := payloadString(payload, "created_at")
	if err != nil {
		return Pattern{}, err
	}
	createdAt, err := time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return Pattern{}, fmt.Errorf("%w: created_at %q is not valid RFC3339", ErrPayloadMalformed, createdAtStr)
	}

	lastUsedAtStr, err := payloadString(payload, "last_used_at")
	if err != nil {
		return Pattern{}, err
	}
	lastUsedAt, err := time.Parse(time.RFC3339, lastUsedAtStr)
	if err != nil {
		return Pattern{}, fmt.Errorf("%w: last_used_at %q is not valid RFC3339", ErrPayloadMalformed, lastUsedAtStr)
	}

	return Pattern{
		ID:                idStr,
		ConflictSignature: signature,
		FilePath:          filePath,
		Resolution:        resolutionText,
		SuccessCount:      successCount,
		FailureCount:      failureCount,
		CreatedAt:         createdAt,
		LastUsedAt:        lastUsedAt,
		SourceCommit:      sourceCommit,
		TargetBranch:      targetBranch,
	}, nil
}

func payloadString(payload map[string]*qdrant.Value, field string) (string, error) {
	v, ok := payload[field]
	if !ok {
		return "", fmt.Errorf("%w: %s field missing from payload", ErrPayloadMalformed, field)
	}
	s, ok := v.Kind.(*qdrant.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: %s field is not a string", ErrPayloadMalformed, field)
	}
	return s.StringValue, nil
}

func payloadInt(payload map[string]*qdrant.Value, field string) (int64, error) {
	v, ok := payload[field]
	if !ok {
		return 0, fmt.Errorf("%w: %s field missing from payload", ErrPayloadMalformed, field)
	}
	i, ok := v.Kind.(*qdrant.Value_IntegerValue)
	if !ok {
		return 0, fmt.Errorf("%w: %s field is not an integer", ErrPayloadMalformed, field)
	}
	return i.IntegerValue, nil
}
