/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package rabbitmqservice

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	rabbitmqv2 "github.com/netcracker/rabbitmq-operator/api/v2"
)

// SpecHash digests the spec with the disaster recovery section removed, so a
// switchover request alone never triggers a reconciliation pass.
func SpecHash(spec *rabbitmqv2.RabbitMQServiceSpec) (string, error) {
	stripped := spec.DeepCopy()
	stripped.DisasterRecovery = nil
	data, err := json.Marshal(stripped)
	if err != nil {
		return "", fmt.Errorf("failed to encode RabbitMQService spec: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// ConfigHash digests ConfigMap data independently of key order.
func ConfigHash(data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(data[k]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
