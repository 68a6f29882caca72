package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestCallToolResultWireShape(t *testing.T) {
	// The failure envelope clients depend on: content items typed "text"
	// and the isError flag spelled exactly so, present even when false.
	result := CallToolResult{
		Content: []TextContent{NewTextContent("quota exceeded")},
		IsError: true,
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	frame := string(data)
	if !strings.Contains(frame, `"type":"text"`) {
		t.Errorf("content item not typed text: %s", frame)
	}
	if !strings.Contains(frame, `"isError":true`) {
		t.Errorf("isError flag missing: %s", frame)
	}

	ok := CallToolResult{Content: []TextContent{NewTextContent("done")}}
	data, err = json.Marshal(ok)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"isError":false`) {
		t.Errorf("isError must serialize even when false: %s", data)
	}
}

func TestCapabilitiesOmitWhatIsNotSupported(t *testing.T) {
	caps := Capabilities{Tools: &ToolsCapability{}}

	data, err := json.Marshal(caps)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "prompts") {
		t.Errorf("prompts capability advertised without registrations: %s", data)
	}
	if !strings.Contains(string(data), "tools") {
		t.Errorf("tools capability missing: %s", data)
	}
}
