package daemon

import (
	"encoding/json"
	"testing"

	"github.com/remberq/simple-voice-transcribe/internal/ledger"
)

func TestCommandOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(Command{Cmd: CmdStop})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"cmd":"stop"}` {
		t.Errorf("stop command = %s", data)
	}
}

func TestCommandUploadWireFormat(t *testing.T) {
	var cmd Command
	if err := json.Unmarshal([]byte(`{"cmd":"upload","path":"/tmp/a.mp3"}`), &cmd); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cmd.Cmd != CmdUpload || cmd.Path != "/tmp/a.mp3" {
		t.Errorf("command = %+v", cmd)
	}
}

func TestResponseStatus(t *testing.T) {
	j := `{"ok":true,"state":"recording","visible":true,"activeJobs":2}`

	var resp Response
	if err := json.Unmarshal([]byte(j), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !resp.OK || resp.State != "recording" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Visible == nil || !*resp.Visible {
		t.Errorf("visible = %v, want true", resp.Visible)
	}
	if resp.ActiveJobs == nil || *resp.ActiveJobs != 2 {
		t.Errorf("activeJobs = %v, want 2", resp.ActiveJobs)
	}
}

func TestResponseJobs(t *testing.T) {
	j := `{"ok":true,"jobs":[{"id":"a","status":"completed","resultText":"hi","providerName":"Mock","fileFormat":"WAV","uploadProgress":1}]}`

	var resp Response
	if err := json.Unmarshal([]byte(j), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Jobs) != 1 {
		t.Fatalf("jobs len = %d, want 1", len(resp.Jobs))
	}
	job := resp.Jobs[0]
	if job.Status != ledger.StatusCompleted || job.Result() != "hi" || job.ProviderName != "Mock" {
		t.Errorf("job = %+v", job)
	}
}

func TestEventState(t *testing.T) {
	j := `{"event":"state","state":"transcribing","visible":true}`

	var ev Event
	if err := json.Unmarshal([]byte(j), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Event != EventState || ev.State != "transcribing" {
		t.Errorf("event = %+v", ev)
	}
}

func TestEventToast(t *testing.T) {
	data, err := json.Marshal(Event{Event: EventToast, Toast: "Inserted into input"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"event":"toast","toast":"Inserted into input"}` {
		t.Errorf("toast event = %s", data)
	}
}

func TestPointerHelpers(t *testing.T) {
	if p := BoolPtr(false); p == nil || *p {
		t.Error("BoolPtr(false) should return pointer to false")
	}
	if p := IntPtr(3); p == nil || *p != 3 {
		t.Error("IntPtr(3) should return pointer to 3")
	}
}
