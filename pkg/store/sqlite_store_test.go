package store

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/chazu/volgrad/pkg/gradient"
	"github.com/chazu/volgrad/pkg/volume"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/go-cmp/cmp"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	return s
}

func noiseField(d volume.Dims, seed int64) *gradient.Field {
	r := rand.New(rand.NewSource(seed))
	g := volume.NewGrid(d)
	g.Fill(func(_, _, _ int) float64 { return r.NormFloat64() })
	return gradient.New(g)
}

func TestEncodeDecodeVoxels(t *testing.T) {
	in := []gradient.Voxel{
		{},
		{Dir: v3.Vec{X: 1, Y: -2.5, Z: 1e-300}, Magnitude: 3.75},
	}
	b := EncodeVoxels(in)
	if len(b) != 2*voxelSize {
		t.Fatalf("len(blob) = %d, want %d", len(b), 2*voxelSize)
	}
	out, err := DecodeVoxels(b)
	if err != nil {
		t.Fatalf("DecodeVoxels failed: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("decoded voxels mismatch (-want +got):\n%s", diff)
	}

	if _, err := DecodeVoxels(b[:voxelSize+3]); err == nil {
		t.Error("DecodeVoxels(truncated) error = nil, want non-nil")
	}
}

func TestNewSQLiteStoreNilDB(t *testing.T) {
	if _, err := NewSQLiteStore(nil); err == nil {
		t.Fatal("NewSQLiteStore(nil) error = nil, want non-nil")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	d := volume.Dims{X: 6, Y: 5, Z: 4}
	f := noiseField(d, 1)
	f.Mode = gradient.NearestNeighbour

	if err := s.Save(ctx, "ct-head", f); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := s.Load(ctx, "ct-head")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Dims() != d {
		t.Errorf("Dims() = %v, want %v", got.Dims(), d)
	}
	if got.Mode != gradient.NearestNeighbour {
		t.Errorf("Mode = %v, want %v", got.Mode, gradient.NearestNeighbour)
	}
	if got.MinMagnitude() != f.MinMagnitude() || got.MaxMagnitude() != f.MaxMagnitude() {
		t.Errorf("range = [%v, %v], want [%v, %v]",
			got.MinMagnitude(), got.MaxMagnitude(), f.MinMagnitude(), f.MaxMagnitude())
	}
	if diff := cmp.Diff(f.Voxels(), got.Voxels()); diff != "" {
		t.Errorf("voxels mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveReplaces(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "k", noiseField(volume.Dims{X: 3, Y: 3, Z: 3}, 1)); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	second := noiseField(volume.Dims{X: 4, Y: 4, Z: 4}, 2)
	if err := s.Save(ctx, "k", second); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	got, err := s.Load(ctx, "k")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Dims() != second.Dims() {
		t.Errorf("Dims() = %v, want %v", got.Dims(), second.Dims())
	}
	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("List returned %d entries, want 1", len(entries))
	}
}

func TestSaveRequiresKey(t *testing.T) {
	s := newStore(t)
	if err := s.Save(context.Background(), "", noiseField(volume.Dims{X: 3, Y: 3, Z: 3}, 1)); err == nil {
		t.Fatal("Save(\"\") error = nil, want non-nil")
	}
}

func TestLoadMissing(t *testing.T) {
	s := newStore(t)
	_, err := s.Load(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load(missing) error = %v, want ErrNotFound", err)
	}
}

func TestListAndDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return stamp }

	for i, key := range []string{"b", "a", "c"} {
		if err := s.Save(ctx, key, noiseField(volume.Dims{X: 3 + i, Y: 3, Z: 3}, int64(i))); err != nil {
			t.Fatalf("Save(%s) failed: %v", key, err)
		}
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	var keys []string
	for _, e := range entries {
		keys = append(keys, e.Key)
		if !e.CreatedAt.Equal(stamp) {
			t.Errorf("entry %s CreatedAt = %v, want %v", e.Key, e.CreatedAt, stamp)
		}
		if e.Mode != gradient.Linear {
			t.Errorf("entry %s Mode = %v, want %v", e.Key, e.Mode, gradient.Linear)
		}
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, keys); diff != "" {
		t.Errorf("List keys mismatch (-want +got):\n%s", diff)
	}
	if entries[0].Dims != (volume.Dims{X: 4, Y: 3, Z: 3}) {
		t.Errorf("entry a Dims = %v, want 4x3x3", entries[0].Dims)
	}

	if err := s.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete(b) failed: %v", err)
	}
	if err := s.Delete(ctx, "b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete(b) error = %v, want ErrNotFound", err)
	}
	if _, err := s.Load(ctx, "b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(b) after delete error = %v, want ErrNotFound", err)
	}
	entries, err = s.List(ctx)
	if err != nil {
		t.Fatalf("List after delete failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("List after delete returned %d entries, want 2", len(entries))
	}
}
