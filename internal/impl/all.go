// Package impl blank-imports every concrete adapter and processor so
// their init() registration runs as a side effect of importing this
// package once, mirroring arkflow-plugin's per-adapter registration
// scheme.
package impl

import (
	_ "github.com/ark-flow/arkflow/internal/impl/buffer/memory"

	_ "github.com/ark-flow/arkflow/internal/impl/input/file"
	_ "github.com/ark-flow/arkflow/internal/impl/input/generate"
	_ "github.com/ark-flow/arkflow/internal/impl/input/http"
	_ "github.com/ark-flow/arkflow/internal/impl/input/kafka"
	_ "github.com/ark-flow/arkflow/internal/impl/input/modbus"
	_ "github.com/ark-flow/arkflow/internal/impl/input/mqtt"
	_ "github.com/ark-flow/arkflow/internal/impl/input/redis"
	_ "github.com/ark-flow/arkflow/internal/impl/input/sql"

	_ "github.com/ark-flow/arkflow/internal/impl/output/drop"
	_ "github.com/ark-flow/arkflow/internal/impl/output/file"
	_ "github.com/ark-flow/arkflow/internal/impl/output/http"
	_ "github.com/ark-flow/arkflow/internal/impl/output/kafka"
	_ "github.com/ark-flow/arkflow/internal/impl/output/mqtt"
	_ "github.com/ark-flow/arkflow/internal/impl/output/redis"
	_ "github.com/ark-flow/arkflow/internal/impl/output/sql"
	_ "github.com/ark-flow/arkflow/internal/impl/output/stdout"

	_ "github.com/ark-flow/arkflow/internal/impl/processor/jsonarrow"
	_ "github.com/ark-flow/arkflow/internal/impl/processor/mapping"
	_ "github.com/ark-flow/arkflow/internal/impl/processor/protobuf"
	_ "github.com/ark-flow/arkflow/internal/impl/processor/retry"
	_ "github.com/ark-flow/arkflow/internal/impl/processor/sqlproc"
)
