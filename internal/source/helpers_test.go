// SPDX-License-Identifier: MPL-2.0

package source

// scriptedPrompter answers questions from fixed queues and records titles.
type scriptedPrompter struct {
	confirms []bool
	inputs   []string
	asked    []string
}

func (p *scriptedPrompter) Confirm(title string, _ bool) (bool, error) {
	p.asked = append(p.asked, title)
	if len(p.confirms) == 0 {
		return false, nil
	}
	ans := p.confirms[0]
	p.confirms = p.confirms[1:]
	return ans, nil
}

func (p *scriptedPrompter) Input(title string, lines ...string) (string, error) {
	p.asked = append(p.asked, title)
	p.asked = append(p.asked, lines...)
	if len(p.inputs) == 0 {
		return "", nil
	}
	ans := p.inputs[0]
	p.inputs = p.inputs[1:]
	return ans, nil
}
