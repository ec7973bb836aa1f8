// Copyright (c) The msq authors. All rights reserved.
// Licensed under the MIT License.

package msq

import "github.com/concurrentfifo/msq/internal/grc"

// ErrGuardSlotsExhausted is re-exported from internal/grc so callers that
// recover a panic raised by a saturated guard table can errors.Is against
// a name in this package instead of reaching into internal/grc directly.
const ErrGuardSlotsExhausted = grc.ErrGuardSlotsExhausted
