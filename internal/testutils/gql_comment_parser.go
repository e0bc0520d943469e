package testutils

import (
	"fmt"
	"regexp"
	"strings"
)

// FindOptionString reads `# option:<name>: <value>` from a schema comment.
func FindOptionString(t TestingT, optionName, source string) string {
	t.Helper()

	pattern := fmt.Sprintf("(?m)^# option:%s:\\s*([^\\s]+)$", regexp.QuoteMeta(optionName))
	re, err := regexp.Compile(pattern)
	if err != nil {
		t.Fatal(err)
	}

	ss := re.FindStringSubmatch(source)
	if len(ss) != 2 {
		t.Logf("option %s value is not found", optionName)
		return ""
	}

	return ss[1]
}

// FindOptionList reads a comma separated `# option:<name>: a,b` value.
func FindOptionList(t TestingT, optionName, source string) []string {
	t.Helper()

	v := FindOptionString(t, optionName, source)
	if v == "" {
		return nil
	}
	return strings.Split(v, ",")
}
