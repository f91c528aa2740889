package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/accessible-chennai/internal/apperror"
)

func TestClearDatabase(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		presented  string
		wantErr    error
		wantResets int
	}{
		{"no token configured", "", "", nil, 1},
		{"no token configured ignores header", "", "anything", nil, 1},
		{"correct token", "s3cret", "s3cret", nil, 1},
		{"wrong token", "s3cret", "guess", apperror.ErrForbidden, 0},
		{"missing token", "s3cret", "", apperror.ErrForbidden, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeResetter{}
			svc := NewAdminService(store, tt.token, discardLogger())

			err := svc.ClearDatabase(context.Background(), tt.presented)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ClearDatabase() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("ClearDatabase() error = %v", err)
			}
			if store.resets != tt.wantResets {
				t.Errorf("resets = %d, want %d", store.resets, tt.wantResets)
			}
		})
	}
}

func TestClearDatabase_StoreError(t *testing.T) {
	resetErr := errors.New("database is locked")
	svc := NewAdminService(&fakeResetter{err: resetErr}, "", discardLogger())

	if err := svc.ClearDatabase(context.Background(), ""); !errors.Is(err, resetErr) {
		t.Errorf("ClearDatabase() error = %v, want %v", err, resetErr)
	}
}
