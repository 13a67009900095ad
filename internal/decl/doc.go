package decl

import "strings"

// Doc is a documentation comment attached to a declaration or member.
type Doc struct {
	// Raw is the comment exactly as written, including delimiters.
	Raw  string
	Text string
	Tags []Tag
}

// Tag is one block tag, e.g. "@hideconstructor protected".
type Tag struct {
	Name    string
	Payload string
}

// Empty reports whether no comment was attached.
func (d Doc) Empty() bool {
	return d.Raw == ""
}

// Tag returns the payload of the first tag with the given name.
func (d Doc) Tag(name string) (string, bool) {
	for _, t := range d.Tags {
		if t.Name == name {
			return t.Payload, true
		}
	}
	return "", false
}

// ParseDoc splits a /** ... */ comment into summary text and block tags.
// Anything that is not a JSDoc block yields the zero Doc.
func ParseDoc(raw string) Doc {
	if !strings.HasPrefix(raw, "/**") || !strings.HasSuffix(raw, "*/") || len(raw) < 5 {
		return Doc{}
	}
	body := raw[3 : len(raw)-2]

	d := Doc{Raw: raw}
	var text []string
	var cur *Tag
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "*")
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "@") {
			name, payload, _ := strings.Cut(line[1:], " ")
			d.Tags = append(d.Tags, Tag{Name: name, Payload: strings.TrimSpace(payload)})
			cur = &d.Tags[len(d.Tags)-1]
			continue
		}
		if cur != nil {
			if line != "" {
				cur.Payload = strings.TrimSpace(cur.Payload + " " + line)
			}
			continue
		}
		text = append(text, line)
	}
	d.Text = strings.TrimSpace(strings.Join(text, "\n"))
	return d
}

// Without returns d with every tag named in names removed and Raw rebuilt
// from what remains. A comment left with no text and no tags is dropped.
func (d Doc) Without(names ...string) Doc {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	out := Doc{Text: d.Text}
	for _, t := range d.Tags {
		if !drop[t.Name] {
			out.Tags = append(out.Tags, t)
		}
	}
	if len(out.Tags) == len(d.Tags) {
		return d
	}
	if out.Text == "" && len(out.Tags) == 0 {
		return Doc{}
	}

	var lines []string
	if out.Text != "" {
		lines = append(lines, strings.Split(out.Text, "\n")...)
	}
	for _, t := range out.Tags {
		lines = append(lines, strings.TrimSpace("@"+t.Name+" "+t.Payload))
	}
	if len(lines) == 1 {
		out.Raw = "/** " + lines[0] + " */"
		return out
	}
	var b strings.Builder
	b.WriteString("/**\n")
	for _, l := range lines {
		b.WriteString(strings.TrimRight(" * "+l, " ") + "\n")
	}
	b.WriteString(" */")
	out.Raw = b.String()
	return out
}
