package scanner

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"
)

// Accepted first lines:
//
//	// ember:api   // ember:ui
//	// api         // ui
//	//'api'        //"ui"
var markerRe = regexp.MustCompile(`^//\s*(?:ember:)?(['"]?)(api|ui)(['"]?)\s*$`)

// ParseMarker classifies a file by its first line.
func ParseMarker(firstLine string) Kind {
	m := markerRe.FindStringSubmatch(strings.TrimSpace(firstLine))
	if m == nil || m[1] != m[3] {
		return KindOther
	}
	if m[2] == "ui" {
		return KindUI
	}
	return KindAPI
}

// readFirstLine returns the first line of a file without its newline.
func readFirstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
