package soap

import (
	"strings"

	"github.com/beevik/etree"
)

// ExtractXPath returns the trimmed text at path, or an attribute value for
// paths ending in /@name. It returns "" when nothing matches.
//
// Paths use etree's syntax: /a/b, //b, /a/b[1], //*[local-name()='b'].
func ExtractXPath(root *etree.Element, path string) string {
	if root == nil || path == "" {
		return ""
	}
	if elem, attr, ok := strings.Cut(path, "/@"); ok {
		if elem == "" || elem == "." {
			return root.SelectAttrValue(attr, "")
		}
		if e := root.FindElement(elem); e != nil {
			return e.SelectAttrValue(attr, "")
		}
		return ""
	}
	if e := root.FindElement(path); e != nil {
		return strings.TrimSpace(e.Text())
	}
	return ""
}

// MatchXPath reports whether every path in conditions has the expected value.
func MatchXPath(root *etree.Element, conditions map[string]string) bool {
	for path, expected := range conditions {
		if ExtractXPath(root, path) != expected {
			return false
		}
	}
	return true
}

// elementToMap converts the children of elem into nested maps keyed by local
// name. Leaves become strings and repeated tags become slices.
func elementToMap(elem *etree.Element) map[string]any {
	result := make(map[string]any)
	if elem == nil {
		return result
	}

	counts := make(map[string]int)
	children := elem.ChildElements()
	for _, child := range children {
		counts[child.Tag]++
	}

	for _, child := range children {
		var value any
		if len(child.ChildElements()) == 0 {
			value = strings.TrimSpace(child.Text())
		} else {
			value = elementToMap(child)
		}

		if counts[child.Tag] == 1 {
			result[child.Tag] = value
			continue
		}
		list, _ := result[child.Tag].([]any)
		result[child.Tag] = append(list, value)
	}
	return result
}
