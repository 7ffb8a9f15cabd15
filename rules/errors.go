//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rules

import "fmt"

// RuleInvalid is raised when a rule set is given a rule with semantically
// impossible parameters, such as a RandomWithProbability outside [0,1]. It
// is detected at reconfigure time; the offending rule set is never
// installed. RuleSet.Validate reports every offending rule index in one
// pass rather than failing on the first one, so a reconfigure call can
// surface the whole list at once.
type RuleInvalid struct {
	RuleIndex int
	Reason    string
}

func (e *RuleInvalid) Error() string {
	return fmt.Sprintf("rule %d is invalid: %s", e.RuleIndex, e.Reason)
}

// RuleInvalidList collects every RuleInvalid found while validating a
// RuleSet.
type RuleInvalidList []*RuleInvalid

func (l RuleInvalidList) Error() string {
	if len(l) == 1 {
		return l[0].Error()
	}
	return fmt.Sprintf("%d invalid rules, first: %s", len(l), l[0].Error())
}
