/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"image/color"

	"github.com/mazznoer/csscolorparser"
)

// ParseColor reads any CSS colour value: hex, rgb(a), hsl(a), hwb and the
// named colours. Fully transparent colours and anything that is not a
// single colour (gradients, var()) report false.
func ParseColor(s string) (color.NRGBA, bool) {
	c, err := csscolorparser.Parse(s)
	if err != nil {
		return color.NRGBA{}, false
	}
	r, g, b, a := c.RGBA255()
	if a == 0 {
		return color.NRGBA{}, false
	}
	return color.NRGBA{R: r, G: g, B: b, A: a}, true
}
