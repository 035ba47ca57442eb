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

package transfer

// 🔀 Mode selects between copying and moving
type Mode int

const (
	ModeCopy Mode = iota
	ModeMove
)

// String returns the command name of the mode
func (m Mode) String() string {
	switch m {
	case ModeCopy:
		return "cp"
	case ModeMove:
		return "mv"
	default:
		return "unknown"
	}
}

// ParseMode maps a command name onto a Mode.
func ParseMode(name string) (Mode, bool) {
	switch name {
	case "cp":
		return ModeCopy, true
	case "mv":
		return ModeMove, true
	default:
		return 0, false
	}
}

// 🚦 State is the driver's position in a run
type State int

const (
	StatePending State = iota
	StateScanning
	StateDirectoryCreation
	StateCopying
	StateCleanup
	StateDone
	StateAborted
	StateFailed
)

// String returns a string representation of State
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateScanning:
		return "scanning"
	case StateDirectoryCreation:
		return "directory_creation"
	case StateCopying:
		return "copying"
	case StateCleanup:
		return "cleanup"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateDone || s == StateAborted || s == StateFailed
}
