package chatclient

import (
	"encoding/json"
	"strings"
)

// Action is a tappable suggestion the model embeds in its reply using the
// [ACTION:label|tag|json] marker syntax.
type Action struct {
	Label string
	Tag   string
	Args  json.RawMessage
}

const markerPrefix = "[ACTION:"

// ParseContent scans content for action markers. Well-formed markers are
// stripped from the returned display text and collected as Actions.
// Malformed markers are left in place untouched, and an unterminated marker
// at the end of the content stays visible until its closing bracket arrives.
func ParseContent(content string) (string, []Action) {
	var out strings.Builder
	var actions []Action

	rest := content
	for {
		i := strings.Index(rest, markerPrefix)
		if i < 0 {
			out.WriteString(rest)
			break
		}
		out.WriteString(rest[:i])

		a, n, ok := parseMarker(rest[i:])
		if n < 0 {
			out.WriteString(rest[i:])
			break
		}
		if ok {
			actions = append(actions, a)
		} else {
			out.WriteString(rest[i : i+n])
		}
		rest = rest[i+n:]
	}
	return out.String(), actions
}

// parseMarker parses one marker starting at the [ACTION: prefix. It returns
// the consumed length including the closing bracket, or -1 when the marker
// never terminates. Segments split on unescaped | with \| and \] escapes.
func parseMarker(s string) (Action, int, bool) {
	var segs []string
	var cur strings.Builder

	i := len(markerPrefix)
	for i < len(s) {
		switch s[i] {
		case '\\':
			if i+1 < len(s) && (s[i+1] == '|' || s[i+1] == ']') {
				cur.WriteByte(s[i+1])
				i += 2
				continue
			}
			cur.WriteByte(s[i])
			i++
		case '|':
			segs = append(segs, cur.String())
			cur.Reset()
			i++
		case ']':
			segs = append(segs, cur.String())
			a, ok := buildAction(segs)
			return a, i + 1, ok
		default:
			cur.WriteByte(s[i])
			i++
		}
	}
	return Action{}, -1, false
}

func buildAction(segs []string) (Action, bool) {
	if len(segs) < 2 || len(segs) > 3 {
		return Action{}, false
	}
	a := Action{Label: segs[0], Tag: segs[1]}
	if a.Label == "" || a.Tag == "" {
		return Action{}, false
	}
	if len(segs) == 3 && segs[2] != "" {
		if !json.Valid([]byte(segs[2])) {
			return Action{}, false
		}
		a.Args = json.RawMessage(segs[2])
	}
	return a, true
}
