// This file is part of tacitus.
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

package compiler

import (
	"fmt"
	"strings"
	"text/scanner"
)

const maxErrors = 10

// ErrList collects positioned compile errors, up to maxErrors of them.
type ErrList []struct {
	Pos scanner.Position
	Msg string
}

func (e ErrList) Error() string {
	l := make([]string, 0, len(e))
	for _, err := range e {
		l = append(l, fmt.Sprintf("%s: %s", err.Pos, err.Msg))
	}
	return strings.Join(l, "\n")
}

func (e *ErrList) add(pos scanner.Position, msg string) {
	if len(*e) >= maxErrors {
		return
	}
	*e = append(*e, struct {
		Pos scanner.Position
		Msg string
	}{pos, msg})
}

func (e ErrList) abort() bool { return len(e) >= maxErrors }
