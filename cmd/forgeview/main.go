// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"

	"github.com/forgeview/forgeview/cmd/forgeview/commands"
	"github.com/forgeview/forgeview/internal/doctor"
	"github.com/google/uuid"
)

func main() {
	traceId := uuid.NewString()
	ctx := context.WithValue(context.Background(), "traceId", traceId)
	err := commands.Execute(ctx)
	if err != nil {
		doctor.CheckErr(ctx, err)
	}
}
