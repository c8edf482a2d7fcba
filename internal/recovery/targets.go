package recovery

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
)

// Target is one desired position for a security, pushed to the execution
// collaborator that works the book toward it.
type Target struct {
	SecurityID int64           `json:"security_id"`
	Qty        decimal.Decimal `json:"qty"`
}

// TargetDoc is the on-disk shape of a target-position file.
type TargetDoc struct {
	Tm      int64    `json:"tm"`
	Targets []Target `json:"targets"`
}

// TargetManager receives parsed target positions. The execution engine
// implements it; tests use a recording stub.
type TargetManager interface {
	SetTargets(subAccountID int64, targets []Target)
}

// TargetFileName returns the store-relative file name for a sub-account.
func TargetFileName(subAccountID int64) string {
	return fmt.Sprintf("target-%d.json", subAccountID)
}

// ParseTargetFileName extracts the sub-account id from a target file path.
func ParseTargetFileName(path string) (int64, bool) {
	name := filepath.Base(path)
	if !strings.HasPrefix(name, "target-") || !strings.HasSuffix(name, ".json") {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(name, "target-"), ".json"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// LoadTargetFile reads and parses one target-position file.
func LoadTargetFile(path string) (TargetDoc, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return TargetDoc{}, errors.Wrap(err, "read target file")
	}
	var doc TargetDoc
	if err := json.Unmarshal(blob, &doc); err != nil {
		return TargetDoc{}, errors.Wrap(err, "parse target file")
	}
	return doc, nil
}
