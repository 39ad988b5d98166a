/*
 * Copyright 2022 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package codec

import (
    `fmt`
)

// FormatError occures when a serialized module is malformed.
type FormatError struct {
    Where  string
    Reason string
    Err    error
}

func (self FormatError) Error() string {
    if self.Err != nil {
        return fmt.Sprintf("FormatError(%s): %s: %v", self.Where, self.Reason, self.Err)
    } else {
        return fmt.Sprintf("FormatError(%s): %s", self.Where, self.Reason)
    }
}

func (self FormatError) Unwrap() error {
    return self.Err
}

func eformat(where string, format string, args ...interface{}) FormatError {
    return FormatError {
        Where  : where,
        Reason : fmt.Sprintf(format, args...),
    }
}

func ewire(where string, err error) FormatError {
    return FormatError {
        Where  : where,
        Reason : "cannot read the wire format",
        Err    : err,
    }
}
