// SPDX-License-Identifier: Apache-2.0

package doctor

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/automa-saga/automa"
	"github.com/automa-saga/logx"
	"github.com/forgeview/forgeview/internal/config"
	"github.com/forgeview/forgeview/internal/schema"
	"github.com/forgeview/forgeview/internal/version"
	"github.com/joomcode/errorx"
)

type ErrorDiagnosis struct {
	Error              error             `yaml:"error" json:"error"`
	Message            string            `yaml:"message" json:"message"`
	Cause              string            `yaml:"cause" json:"cause"`
	ErrorType          string            `yaml:"errorType" json:"errorType"`
	TraceId            string            `yaml:"traceId" json:"traceId"`
	Commit             string            `yaml:"commit" json:"commit"`
	Version            string            `yaml:"version" json:"version"`
	Pid                int               `yaml:"pid" json:"pid"`
	Code               int               `yaml:"code" json:"code"`
	Logfile            string            `yaml:"log" json:"log"`
	ProfilingSnapshots map[string]string `yaml:"profilingSnapshots" json:"profilingSnapshots"`
	Resolution         []string          `yaml:"steps" json:"steps"`
}

func toErrorCode(err error) int {
	switch {
	case errorx.IsOfType(err, errorx.IllegalArgument):
		return 10400
	case errorx.IsOfType(err, schema.IllegalPersistedVersionError):
		return 10409
	case errorx.IsOfType(err, schema.StepFailureError):
		return 10422
	default:
		if errorx.HasTrait(err, errorx.NotFound()) {
			return 10404
		}
		return 10500
	}
}

func toErrorMessage(err error) (string, string) {
	e := errorx.Cast(err)
	if e == nil {
		return err.Error(), ""
	}

	return e.Message(), fmt.Sprintf("%s", e.Cause())
}

func findResolution(err error) []string {
	switch {
	case errorx.IsOfType(err, errorx.IllegalArgument):
		if arg, ok := errorx.ExtractProperty(err, errorx.PropertyPayload()); ok {
			return []string{fmt.Sprintf("Ensure %q is provided.", arg.(string))}
		}
		return []string{"Ensure all required arguments are provided."}
	case errorx.IsOfType(err, errorx.IllegalFormat):
		return []string{"Ensure provided data is in correct format."}
	case errorx.IsOfType(err, config.NotFoundError):
		if arg, ok := errorx.ExtractProperty(err, errorx.PropertyPayload()); ok {
			return []string{fmt.Sprintf("Ensure configuration file %q exists, is correctly formatted and accessible", arg.(string))}
		}
		return []string{"Ensure configuration file exists and is accessible."}
	case errorx.IsOfType(err, schema.IllegalPersistedVersionError):
		return []string{
			"The database was written by a newer release than this binary.",
			"Upgrade the binary to the latest release, or restore the data directory from a matching backup.",
		}
	case errorx.IsOfType(err, schema.StepFailureError):
		steps := []string{"The database was left unchanged; it is safe to retry after fixing the cause."}
		if v, ok := schema.FailedVersion(err); ok {
			steps = append(steps, fmt.Sprintf("Inspect the error above for release %s and re-run the upgrade.", v))
		}
		return steps
	default:
		return []string{"Check error message for details or contact support"}
	}
}

func takeProfilingSnapshots(ex error) map[string]string {
	timestamp := time.Now().Format("20060102-150405")

	snapshotDir := filepath.Join(config.Get().Data.Dir, "diagnostics", timestamp)
	if err := os.MkdirAll(snapshotDir, 0o755); err != nil {
		log.Printf("failed to create diagnostics directory: %v", err)
		return nil
	}

	files := make(map[string]string)

	// Error stack trace
	stacktraceFile := filepath.Join(snapshotDir, "stacktrace-"+timestamp+".txt")
	f, err := os.Create(stacktraceFile)
	if err == nil {
		if ex != nil {
			_, _ = fmt.Fprintf(f, "%+v\n", ex)
		} else {
			buf := make([]byte, 1<<16)
			n := runtime.Stack(buf, true)
			_, _ = f.Write(buf[:n])
		}
		files["stacktrace"] = stacktraceFile
		f.Close()
	}

	// Heap profile
	heapFile := filepath.Join(snapshotDir, "pprof-heap-"+timestamp+".pb.gz")
	f, err = os.Create(heapFile)
	if err == nil {
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err == nil {
			files["heap"] = heapFile
		} else {
			log.Printf("failed to write heap profile: %v", err)
		}
		f.Close()
	} else {
		log.Printf("failed to create heap profile file: %v", err)
	}

	// Goroutine profile
	goroutineFile := filepath.Join(snapshotDir, "pprof-goroutine-"+timestamp+".pb.gz")
	f, err = os.Create(goroutineFile)
	if err == nil {
		if err := pprof.Lookup("goroutine").WriteTo(f, 1); err == nil {
			files["goroutine"] = goroutineFile
		} else {
			log.Printf("failed to write goroutine profile: %v", err)
		}
		f.Close()
	} else {
		log.Printf("failed to create goroutine profile file: %v", err)
	}

	return files
}

// Diagnose attempts to find a resolution and provide a human friendly error response
func Diagnose(ctx context.Context, ex error) *ErrorDiagnosis {
	var traceId string
	if ctx.Value("traceId") != nil {
		traceId = ctx.Value("traceId").(string)
	}

	msg, cause := toErrorMessage(ex)
	return &ErrorDiagnosis{
		Error:              ex,
		ErrorType:          errorx.GetTypeName(ex),
		Message:            msg,
		Cause:              cause,
		TraceId:            traceId,
		Code:               toErrorCode(ex),
		Commit:             version.Commit(),
		Version:            version.Number(),
		Pid:                os.Getpid(),
		Logfile:            config.Get().Log.Filename,
		ProfilingSnapshots: takeProfilingSnapshots(ex),
		Resolution:         findResolution(ex),
	}
}

// CheckErr prints diagnosis and exit with error code 1
// Optional instructions can be provided to give additional context to the user
func CheckErr(ctx context.Context, err error, instructions ...string) {
	logx.As().Error().Err(err).Msg("error occurred")
	fmt.Printf("%+v\n", err)
	resp := Diagnose(ctx, err)

	fmt.Printf("\n%s%s************************************** Error Diagnostics ******************************************%s\n", Bold, Red, Reset)
	fmt.Printf("%s*%s\t%sError:%s %s\n", Red, Reset, Bold+White, Reset, resp.Message)
	if resp.Cause != "" {
		fmt.Printf("%s*%s\t%sCause:%s %s\n", Red, Reset, Bold+White, Reset, resp.Cause)
	}
	fmt.Printf("%s*%s\t%sError Type:%s %s\n", Red, Reset, Bold+White, Reset, resp.ErrorType)
	fmt.Printf("%s*%s\t%sError Code:%s %d\n", Red, Reset, Bold+White, Reset, resp.Code)
	fmt.Printf("%s*%s\t%sCommit:%s %s\n", Red, Reset, Gray, Reset, resp.Commit)
	fmt.Printf("%s*%s\t%sPid:%s %d\n", Red, Reset, Gray, Reset, resp.Pid)
	fmt.Printf("%s*%s\t%sTraceId:%s %s\n", Red, Reset, Gray, Reset, resp.TraceId)
	fmt.Printf("%s*%s\t%sVersion:%s %s\n", Red, Reset, Gray, Reset, resp.Version)
	if resp.Logfile != "" {
		fmt.Printf("%s*%s\t%sLogfile:%s %s\n", Red, Reset, Cyan, Reset, resp.Logfile)
	}
	if resp.ProfilingSnapshots != nil {
		fmt.Printf("%s*%s\t%sProfiling:%s\n", Red, Reset, Cyan, Reset)
		for key, snapshotFile := range resp.ProfilingSnapshots {
			fmt.Printf("%s*%s\t  %s- %s:%s %s\n", Red, Reset, Cyan, key, Reset, snapshotFile)
		}
	}
	fmt.Printf("%s%s***************************************************************************************************%s\n", Bold, Red, Reset)
	fmt.Printf("\n%s%s****************************************** Resolution *********************************************%s\n", Bold, Yellow, Reset)

	// Print custom instructions first if provided
	if len(instructions) > 0 && instructions[0] != "" {
		for _, line := range strings.Split(instructions[0], "\n") {
			if line == "" {
				fmt.Printf("%s*%s\n", Yellow, Reset)
			} else {
				fmt.Printf("%s*%s\t%s\n", Yellow, Reset, Bold+White+line+Reset)
			}
		}
		if len(resp.Resolution) > 0 {
			fmt.Printf("%s*%s\n", Yellow, Reset)
		}
	}

	// Print default resolution steps
	for _, r := range resp.Resolution {
		fmt.Printf("%s*%s\t%s\n", Yellow, Reset, White+r+Reset)
	}

	fmt.Printf("%s%s***************************************************************************************************%s\n", Bold, Yellow, Reset)

	os.Exit(1)
}

// GetInstructionsFromReport recursively searches for instructions in report metadata.
// Returns the first non-empty instructions found in the report tree, or an empty string if none exist.
func GetInstructionsFromReport(report *automa.Report) string {
	if report == nil {
		return ""
	}

	if instructions, ok := report.Metadata["instructions"]; ok {
		return instructions
	}

	for _, stepReport := range report.StepReports {
		if instructions := GetInstructionsFromReport(stepReport); instructions != "" {
			return instructions
		}
	}

	return ""
}
