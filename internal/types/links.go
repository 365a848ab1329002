// links.go
//
// A link-in-bio profile service for linkz.bio
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of linkz-bio.
// linkz-bio is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// linkz-bio is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with linkz-bio.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Link is one profile link
type Link struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// LinkList is an ordered list of links that can be unmarshaled from either a
// JSON array of links or the legacy {"platform": "url"} object form.
// Object keys keep their document order.
type LinkList []Link

// UnmarshalJSON implements the json.Unmarshaler interface.
func (l *LinkList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*l = nil
		return nil
	}

	switch data[0] {
	case '[':
		var slice []Link
		if err := json.Unmarshal(data, &slice); err != nil {
			return err
		}
		*l = LinkList(slice)
		return nil
	case '{':
		links, err := decodeLegacyLinks(data)
		if err != nil {
			return err
		}
		*l = links
		return nil
	}

	return fmt.Errorf("links: expected array or object")
}

// decodeLegacyLinks walks the object token by token to keep key order.
func decodeLegacyLinks(data []byte) (LinkList, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	links := LinkList{}
	for dec.More() {
		keyToken, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyToken.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		links = append(links, Link{Platform: key, URL: stringifyJSON(raw)})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return links, nil
}

// stringifyJSON renders a JSON value the way a loose client would: strings
// unquoted, everything else as its literal text.
func stringifyJSON(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

// Slice converts LinkList back to []Link, never nil.
func (l LinkList) Slice() []Link {
	if l == nil {
		return []Link{}
	}
	return []Link(l)
}
