package tracing

import "go.opentelemetry.io/otel/attribute"

func attrRunID(runID string) attribute.KeyValue { return attribute.String("cir.run_id", runID) }
func attrInt(key string, v int) attribute.KeyValue { return attribute.Int(key, v) }
func attrString(key, v string) attribute.KeyValue  { return attribute.String(key, v) }
