// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package msq

// RaceEnabled is true when the race detector is active.
// Tests use it to skip concurrent runs, where node hand-off through the
// epoch collector is invisible to the detector and reported as a race.
const RaceEnabled = true
