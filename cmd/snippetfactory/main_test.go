package main

import "testing"

func TestValidatePort(t *testing.T) {
	for _, port := range []int{1, 8318, 65535} {
		if err := validatePort(port); err != nil {
			t.Fatalf("port %d: unexpected error %v", port, err)
		}
	}
	for _, port := range []int{-1, 0, 65536} {
		if err := validatePort(port); err == nil {
			t.Fatalf("port %d: expected error", port)
		}
	}
}
