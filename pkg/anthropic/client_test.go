package anthropic

import "testing"

func TestEstimateCost(t *testing.T) {
	usage := TokenUsage{
		InputTokens:  1_000_000,
		OutputTokens: 100_000,
	}

	cost := usage.EstimateCost("claude-haiku-4-5-20251001")
	want := 0.80 + 0.40
	if diff := cost - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected cost %.4f, got %.4f", want, cost)
	}
}

func TestEstimateCost_UnknownModel(t *testing.T) {
	usage := TokenUsage{InputTokens: 1000}
	if cost := usage.EstimateCost("some-future-model"); cost != 0 {
		t.Errorf("unknown model should cost 0, got %f", cost)
	}
}

func TestEstimateCost_CacheTokens(t *testing.T) {
	usage := TokenUsage{
		CacheCreationInputTokens: 1_000_000,
		CacheReadInputTokens:     1_000_000,
	}
	cost := usage.EstimateCost("claude-haiku-4-5-20251001")
	want := 0.80*1.25 + 0.80*0.1
	if diff := cost - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected cache cost %.4f, got %.4f", want, cost)
	}
}

func TestResponseText(t *testing.T) {
	resp := &MessageResponse{
		Content: []ContentBlock{
			{Type: "text", Text: "hello "},
			{Type: "tool_use", Text: "ignored"},
			{Type: "text", Text: "world"},
		},
	}
	if got := resp.Text(); got != "hello world" {
		t.Errorf("Text() = %q", got)
	}

	var nilResp *MessageResponse
	if nilResp.Text() != "" {
		t.Error("nil response should yield empty text")
	}
}

func TestToSDKMessages_ImagesPrecedeText(t *testing.T) {
	msgs := toSDKMessages([]Message{
		{
			Role:    "user",
			Content: "read this lab sheet",
			Images:  []Image{{MediaType: "image/jpeg", Data: "aGVsbG8="}},
		},
	})
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if len(msgs[0].Content) != 2 {
		t.Fatalf("expected image + text blocks, got %d", len(msgs[0].Content))
	}
	if msgs[0].Content[0].OfImage == nil {
		t.Error("first block should be the image")
	}
	if msgs[0].Content[1].OfText == nil {
		t.Error("second block should be the text")
	}
}

func TestBuildCachedSystemBlocks(t *testing.T) {
	blocks := BuildCachedSystemBlocks("system text")
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if blocks[0].CacheControl == nil || blocks[0].CacheControl.TTL != "1h" {
		t.Error("expected 1h cache control")
	}
}
