package parsers

import (
	"fmt"

	"github.com/username/pitfolio/src/parsers/etoro"
)

func GetParser(source string) (StatementParser, error) {
	switch source {
	case "etoro":
		return etoro.NewParser(), nil
	default:
		return nil, fmt.Errorf("no parser available for source: %s", source)
	}
}
