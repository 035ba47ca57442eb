// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package units formats byte counts, throughput and durations for the
// progress line and summaries.
package units

import (
	"fmt"
	"math"
	"time"
)

const (
	KB = 1024
	MB = KB * 1024
	GB = MB * 1024
)

// 📏 Size formats n bytes with two decimals in the largest fitting unit,
// e.g. "512b", "1.50kb", "3.25gb".
func Size(n int64) string {
	switch {
	case n >= GB:
		return fmt.Sprintf("%.2fgb", float64(n)/GB)
	case n >= MB:
		return fmt.Sprintf("%.2fmb", float64(n)/MB)
	case n >= KB:
		return fmt.Sprintf("%.2fkb", float64(n)/KB)
	case n < 0:
		return "0b"
	default:
		return fmt.Sprintf("%db", n)
	}
}

// 🚀 Rate formats a throughput in bytes per second.
func Rate(bytesPerSecond float64) string {
	if bytesPerSecond <= 0 || math.IsNaN(bytesPerSecond) || math.IsInf(bytesPerSecond, 0) {
		return "0b/s"
	}
	return Size(int64(bytesPerSecond)) + "/s"
}

// ⏱️ Duration formats an estimate. Negative durations mean "unknown" and
// render as "...".
func Duration(d time.Duration) string {
	if d < 0 {
		return "..."
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		m := int(d / time.Minute)
		s := int((d % time.Minute) / time.Second)
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		h := int(d / time.Hour)
		m := int((d % time.Hour) / time.Minute)
		return fmt.Sprintf("%dh%02dm", h, m)
	}
}
