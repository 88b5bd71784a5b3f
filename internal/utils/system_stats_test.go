package utils

import "testing"

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{512, "512 Bytes"},
		{2048, "2.00 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
		{3 * 1024 * 1024 * 1024, "3.00 GB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGetSystemStatsWithoutPool(t *testing.T) {
	stats := GetSystemStats(nil)
	if stats.NumCPU <= 0 || stats.WorkerCount != 1 || stats.ActiveJobs != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if DefaultWorkerCount() < 1 {
		t.Error("DefaultWorkerCount must be at least 1")
	}
}
