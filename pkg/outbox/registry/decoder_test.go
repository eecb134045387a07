package registry

import (
	"encoding/json"
	"testing"

	"github.com/helplane/helplane-backend/pkg/enums"
)

func TestDecoderRegistry(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventAgentAvailabilitySet, 1, func(payload json.RawMessage) (interface{}, error) {
		var decoded map[string]string
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return nil, err
		}
		return decoded, nil
	})

	input := json.RawMessage(`{"availability":"online"}`)
	output, err := reg.Decode(enums.EventAgentAvailabilitySet, 1, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outMap, ok := output.(map[string]string); !ok || outMap["availability"] != "online" {
		t.Fatalf("unexpected output %+v", output)
	}
}

func TestDecoderRegistryUnregistered(t *testing.T) {
	reg := NewDecoderRegistry()
	if _, err := reg.Decode(enums.EventConversationAssigned, 2, json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected unregistered decoder error")
	}
}
