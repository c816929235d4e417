package notify

import (
	"strings"

	dErrors "kvcheck/pkg/domain-errors"
	"kvcheck/pkg/email"
	pkgstrings "kvcheck/pkg/platform/strings"
)

// AFSentinel in worker data means "send to the AF address of the work item".
const AFSentinel = "AF"

// AFEmailField is the payload field the AF sentinel reads.
const AFEmailField = "AF_email"

// Recipient is the parsed recipient configuration of a worker: either
// LiteralAddress or FromPayload.
type Recipient interface {
	// Resolve returns the addresses to send to for one work item payload.
	Resolve(payload map[string]any) ([]string, error)
	String() string
}

// LiteralAddress is a fixed list of addresses.
type LiteralAddress struct {
	Addresses []string
}

func (r LiteralAddress) Resolve(map[string]any) ([]string, error) {
	return append([]string(nil), r.Addresses...), nil
}

func (r LiteralAddress) String() string { return strings.Join(r.Addresses, ";") }

// FromPayload reads the address from a field of the work item.
type FromPayload struct {
	Field string
}

func (r FromPayload) Resolve(payload map[string]any) ([]string, error) {
	v, ok := payload[r.Field].(string)
	addrs := pkgstrings.SplitList(v, ";,")
	if !ok || len(addrs) == 0 {
		return nil, dErrors.Newf(dErrors.CodeDataShape, "work item has no address in %s", r.Field)
	}
	for _, a := range addrs {
		if !email.ValidAddress(a) {
			return nil, dErrors.Newf(dErrors.CodeDataShape, "work item field %s holds invalid address %q", r.Field, a)
		}
	}
	return addrs, nil
}

func (r FromPayload) String() string { return "payload:" + r.Field }

// ParseRecipient turns worker data into a Recipient. Several addresses may
// be separated by ";" or ",".
func ParseRecipient(workerData string) (Recipient, error) {
	data := strings.TrimSpace(workerData)
	if data == "" {
		return nil, dErrors.New(dErrors.CodeConfiguration, "no recipient configured")
	}
	if strings.EqualFold(data, AFSentinel) {
		return FromPayload{Field: AFEmailField}, nil
	}

	addrs := pkgstrings.SplitList(data, ";,")
	for _, a := range addrs {
		if !email.ValidAddress(a) {
			return nil, dErrors.Newf(dErrors.CodeConfiguration, "invalid recipient address %q", a)
		}
	}
	return LiteralAddress{Addresses: addrs}, nil
}
