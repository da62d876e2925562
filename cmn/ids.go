/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import (
	"sync"
	"time"

	"github.com/teris-io/shortid"
)

// alphabet compatible with shortid.DEFAULT_ABC
const idABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"

var (
	sid     *shortid.Shortid
	sidOnce sync.Once
)

// InitID seeds the process-wide id generator; optional - the first GenID
// self-seeds when not called.
func InitID(seed uint64) {
	sidOnce.Do(func() { sid = shortid.MustNew(4 /*worker*/, idABC, seed) })
}

// GenID generates a short unique id (blob ids, session ids).
func GenID() string {
	sidOnce.Do(func() {
		sid = shortid.MustNew(4, idABC, uint64(time.Now().UnixNano()))
	})
	return sid.MustGenerate()
}
