package syncq

import "testing"

func TestQueuePushLoadSave(t *testing.T) {
	q := New(t.TempDir())

	got, err := q.Load()
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty queue, got %d", len(got))
	}

	cmd := Command{Method: "POST", Path: "/v1/banks/1/applicants/a/decision", Body: map[string]any{"decision": "deny"}, IdempotencyKey: "k1"}
	if err := q.Push(cmd); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := q.Push(cmd); err != nil {
		t.Fatalf("push duplicate: %v", err)
	}
	if err := q.Push(Command{Method: "POST", Path: "/v1/banks", IdempotencyKey: "k2"}); err != nil {
		t.Fatalf("push second: %v", err)
	}

	got, err = q.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(got))
	}
	if got[0].IdempotencyKey != "k1" || got[0].Body["decision"] != "deny" || got[0].QueuedAt.IsZero() {
		t.Fatalf("unexpected first command: %+v", got[0])
	}

	if err := q.Save(nil); err != nil {
		t.Fatalf("save empty: %v", err)
	}
	got, err = q.Load()
	if err != nil || len(got) != 0 {
		t.Fatalf("expected cleared queue, got %d err=%v", len(got), err)
	}
}
