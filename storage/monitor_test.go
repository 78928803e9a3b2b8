package storage

import (
	"context"
	"testing"
	"time"
)

func TestMonitorActivityStopsWithContext(t *testing.T) {
	for _, tt := range []struct {
		name  string
		state func() *State
	}{
		{"empty", NewState},
		{"with topics", func() *State {
			s := NewState()
			s.Subscribe("news", "alice")
			s.Publish("news", "hello", nil)
			s.Subscribe("jobs", "bob")
			s.Get("jobs", "bob", nil)
			return s
		}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				MonitorActivity(ctx, tt.state(), 5*time.Millisecond)
				close(done)
			}()

			time.Sleep(30 * time.Millisecond)
			cancel()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("monitor did not stop after cancel")
			}
		})
	}
}
