package replay

import (
	"github.com/sirupsen/logrus"
)

// nonceFields returns log fields that identify a nonce without revealing it:
// an 8-character preview only.
func nonceFields(nonce string) logrus.Fields {
	preview := nonce
	if len(preview) > 8 {
		preview = preview[:8] + "..."
	}
	return logrus.Fields{"nonce_preview": preview}
}

// operationFields creates standardized operation logging fields
func operationFields(operation, status string, additional ...logrus.Fields) logrus.Fields {
	fields := logrus.Fields{
		"operation": operation,
		"status":    status,
	}
	for _, extra := range additional {
		for k, v := range extra {
			fields[k] = v
		}
	}
	return fields
}
