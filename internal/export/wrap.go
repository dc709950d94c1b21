/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// wrapLines breaks content into lines no wider than maxWidth pixels.
// Explicit newlines always break; a single word wider than maxWidth gets a
// line of its own. Runs of spaces collapse to one, as in HTML.
func wrapLines(face font.Face, content string, maxWidth int) []string {
	limit := fixed.I(maxWidth)
	space := font.MeasureString(face, " ")
	var out []string
	for _, para := range strings.Split(content, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 || maxWidth <= 0 {
			out = append(out, strings.TrimSpace(para))
			continue
		}
		var cur strings.Builder
		var width fixed.Int26_6
		for _, w := range words {
			adv := font.MeasureString(face, w)
			if cur.Len() > 0 && width+space+adv > limit {
				out = append(out, cur.String())
				cur.Reset()
				width = 0
			}
			if cur.Len() > 0 {
				cur.WriteByte(' ')
				width += space
			}
			cur.WriteString(w)
			width += adv
		}
		out = append(out, cur.String())
	}
	return out
}
