package robot

import (
	"encoding/json"
	"strings"

	"kvcheck/internal/notify"
	dErrors "kvcheck/pkg/domain-errors"
	pkgstrings "kvcheck/pkg/platform/strings"
)

// ParseArguments decodes the process arguments of a run, for example
// {"process": "kv4", "notification_type": "Send mail"}. The process name is
// normalized so later lookups are case-insensitive.
func ParseArguments(raw string) (notify.Request, error) {
	if strings.TrimSpace(raw) == "" {
		return notify.Request{}, dErrors.New(dErrors.CodeConfiguration, "no process arguments given")
	}

	var req notify.Request
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return notify.Request{}, dErrors.Wrap(err, dErrors.CodeConfiguration, "decode process arguments")
	}

	req.Process = pkgstrings.NormalizeKey(req.Process)
	if req.Process == "" {
		return notify.Request{}, dErrors.New(dErrors.CodeConfiguration, "no process defined in process arguments")
	}
	req.NotificationType = strings.TrimSpace(req.NotificationType)
	req.NotificationReceiver = strings.TrimSpace(req.NotificationReceiver)
	return req, nil
}
