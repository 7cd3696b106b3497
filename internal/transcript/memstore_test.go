package transcript

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMemStore_CreateAssignsMetadata(t *testing.T) {
	s := NewMemStore()
	tr := Transcript{
		AudioFilename: "clip.wav",
		Audio:         []byte{1, 2, 3},
		ConvertedText: "hello world",
		CorrectedText: "Hello world.",
		Strategy:      "enhanced",
	}

	if err := s.Create(context.Background(), &tr); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tr.ID == 0 {
		t.Error("Create did not assign an ID")
	}
	if tr.CreatedAt.IsZero() || tr.UpdatedAt.IsZero() {
		t.Error("Create did not assign timestamps")
	}
}

func TestMemStore_GetReturnsStoredRecord(t *testing.T) {
	s := NewMemStore()
	tr := Transcript{AudioFilename: "clip.wav", Audio: []byte{9, 8, 7}, ConvertedText: "text"}
	if err := s.Create(context.Background(), &tr); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.Get(context.Background(), tr.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.AudioFilename != "clip.wav" || got.ConvertedText != "text" {
		t.Errorf("Get returned %+v", got)
	}
	if !bytes.Equal(got.Audio, []byte{9, 8, 7}) {
		t.Errorf("Audio = %v, want [9 8 7]", got.Audio)
	}
}

func TestMemStore_GetUnknownID(t *testing.T) {
	s := NewMemStore()
	if _, err := s.Get(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMemStore_ListNewestFirstWithoutAudio(t *testing.T) {
	s := NewMemStore()
	for i := range 3 {
		tr := Transcript{
			AudioFilename: fmt.Sprintf("clip%d.wav", i),
			Audio:         []byte{byte(i)},
		}
		if err := s.Create(context.Background(), &tr); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	list, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len(list) = %d, want 3", len(list))
	}
	for i, tr := range list {
		if tr.Audio != nil {
			t.Errorf("list[%d].Audio = %v, want nil", i, tr.Audio)
		}
	}
	// Newest (highest ID) first.
	if list[0].ID != 3 || list[2].ID != 1 {
		t.Errorf("order = [%d %d %d], want [3 2 1]", list[0].ID, list[1].ID, list[2].ID)
	}
}

func TestMemStore_ListEmpty(t *testing.T) {
	s := NewMemStore()
	list, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if list == nil {
		t.Error("List returned nil, want empty slice")
	}
	if len(list) != 0 {
		t.Errorf("len(list) = %d, want 0", len(list))
	}
}

func TestMemStore_Delete(t *testing.T) {
	s := NewMemStore()
	tr := Transcript{AudioFilename: "clip.wav"}
	if err := s.Create(context.Background(), &tr); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.Delete(context.Background(), tr.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(context.Background(), tr.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete: err = %v, want ErrNotFound", err)
	}
	if err := s.Delete(context.Background(), tr.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete: err = %v, want ErrNotFound", err)
	}
}

func TestMemStore_StoredCopyIsIsolated(t *testing.T) {
	s := NewMemStore()
	audio := []byte{1, 2, 3}
	tr := Transcript{AudioFilename: "clip.wav", Audio: audio}
	if err := s.Create(context.Background(), &tr); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Mutating the caller's slice must not affect the stored record.
	audio[0] = 99
	got, err := s.Get(context.Background(), tr.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Audio[0] != 1 {
		t.Errorf("stored audio mutated: %v", got.Audio)
	}
}

func TestMemStore_Ping(t *testing.T) {
	if err := NewMemStore().Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
