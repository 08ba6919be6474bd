// Command gcallctl is an operator CLI for probing a running
// gamecallsd daemon over its Unix socket: create a session, rebind its
// master call, finalize it, and read back its state and results. It
// has no commands for sending sample chunks or resetting a session.
//
// Cobra is sourced from other_examples/phase4's dependency stack
// (no command-line library appears in the teacher, whose only entry
// point is a flag-parsed daemon); the newline-delimited JSON request
// format mirrors internal/ipc.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"

	"github.com/huntmasteracademy/gamecalls-engine/internal/ipc"
)

var socketPath string

func main() {
	root := &cobra.Command{
		Use:   "gcallctl",
		Short: "Operator CLI for the gamecalls-engine daemon",
	}
	root.PersistentFlags().StringVar(&socketPath, "socket", fmt.Sprintf("/tmp/gamecallsd-%d.sock", os.Getuid()), "daemon socket path")

	root.AddCommand(createSessionCmd())
	root.AddCommand(finalizeSessionCmd())
	root.AddCommand(sessionStateCmd())
	root.AddCommand(destroySessionCmd())
	root.AddCommand(loadMasterCallCmd())
	root.AddCommand(getSimilarityScoreCmd())
	root.AddCommand(getSimilarityComponentsCmd())
	root.AddCommand(getRealtimeStateCmd())
	root.AddCommand(setEnhancedAnalyzersEnabledCmd())
	root.AddCommand(getEnhancedSummaryCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func createSessionCmd() *cobra.Command {
	var callID string
	var sampleRate int
	cmd := &cobra.Command{
		Use:   "create-session",
		Short: "Create a session bound to a master call",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, _ := json.Marshal(ipc.CreateSessionRequest{CallID: callID, SampleRate: sampleRate})
			return sendRequest(ipc.CmdCreateSession, payload)
		},
	}
	cmd.Flags().StringVar(&callID, "call-id", "", "master call ID to compare against")
	cmd.Flags().IntVar(&sampleRate, "sample-rate", 16000, "session sample rate in Hz")
	cmd.MarkFlagRequired("call-id")
	return cmd
}

func loadMasterCallCmd() *cobra.Command {
	var sessionID uint64
	var callID string
	cmd := &cobra.Command{
		Use:   "load-master-call",
		Short: "Rebind a session to a different master call",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, _ := json.Marshal(ipc.LoadMasterCallRequest{SessionID: sessionID, CallID: callID})
			return sendRequest(ipc.CmdLoadMasterCall, payload)
		},
	}
	cmd.Flags().Uint64Var(&sessionID, "session-id", 0, "session to rebind")
	cmd.Flags().StringVar(&callID, "call-id", "", "new master call ID")
	cmd.MarkFlagRequired("session-id")
	cmd.MarkFlagRequired("call-id")
	return cmd
}

func getSimilarityScoreCmd() *cobra.Command {
	var sessionID uint64
	cmd := &cobra.Command{
		Use:   "get-similarity-score",
		Short: "Query a session's current similarity score",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, _ := json.Marshal(ipc.SessionIDRequest{SessionID: sessionID})
			return sendRequest(ipc.CmdGetSimilarityScore, payload)
		},
	}
	cmd.Flags().Uint64Var(&sessionID, "session-id", 0, "session to query")
	cmd.MarkFlagRequired("session-id")
	return cmd
}

func getSimilarityComponentsCmd() *cobra.Command {
	var sessionID uint64
	cmd := &cobra.Command{
		Use:   "get-similarity-components",
		Short: "Query a session's raw similarity components",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, _ := json.Marshal(ipc.SessionIDRequest{SessionID: sessionID})
			return sendRequest(ipc.CmdGetSimilarityComponents, payload)
		},
	}
	cmd.Flags().Uint64Var(&sessionID, "session-id", 0, "session to query")
	cmd.MarkFlagRequired("session-id")
	return cmd
}

func getRealtimeStateCmd() *cobra.Command {
	var sessionID uint64
	cmd := &cobra.Command{
		Use:   "get-realtime-state",
		Short: "Query a session's frame count and reliability",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, _ := json.Marshal(ipc.SessionIDRequest{SessionID: sessionID})
			return sendRequest(ipc.CmdGetRealtimeSimilarityState, payload)
		},
	}
	cmd.Flags().Uint64Var(&sessionID, "session-id", 0, "session to query")
	cmd.MarkFlagRequired("session-id")
	return cmd
}

func setEnhancedAnalyzersEnabledCmd() *cobra.Command {
	var sessionID uint64
	var enabled bool
	cmd := &cobra.Command{
		Use:   "set-enhanced-analyzers-enabled",
		Short: "Enable or disable a session's pitch/harmonic/cadence/loudness analyzers",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, _ := json.Marshal(ipc.SetEnhancedAnalyzersEnabledRequest{SessionID: sessionID, Enabled: enabled})
			return sendRequest(ipc.CmdSetEnhancedAnalyzersEnabled, payload)
		},
	}
	cmd.Flags().Uint64Var(&sessionID, "session-id", 0, "session to configure")
	cmd.Flags().BoolVar(&enabled, "enabled", true, "whether the enhanced analyzers should run")
	cmd.MarkFlagRequired("session-id")
	return cmd
}

func getEnhancedSummaryCmd() *cobra.Command {
	var sessionID uint64
	cmd := &cobra.Command{
		Use:   "get-enhanced-summary",
		Short: "Query a session's latest enhanced analyzer reading",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, _ := json.Marshal(ipc.SessionIDRequest{SessionID: sessionID})
			return sendRequest(ipc.CmdGetEnhancedAnalysisSummary, payload)
		},
	}
	cmd.Flags().Uint64Var(&sessionID, "session-id", 0, "session to query")
	cmd.MarkFlagRequired("session-id")
	return cmd
}

func finalizeSessionCmd() *cobra.Command {
	var sessionID uint64
	cmd := &cobra.Command{
		Use:   "finalize-session",
		Short: "Freeze a session's similarity score",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, _ := json.Marshal(ipc.SessionIDRequest{SessionID: sessionID})
			return sendRequest(ipc.CmdFinalizeSession, payload)
		},
	}
	cmd.Flags().Uint64Var(&sessionID, "session-id", 0, "session to finalize")
	cmd.MarkFlagRequired("session-id")
	return cmd
}

func sessionStateCmd() *cobra.Command {
	var sessionID uint64
	cmd := &cobra.Command{
		Use:   "session-state",
		Short: "Query a session's lifecycle state",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, _ := json.Marshal(ipc.SessionIDRequest{SessionID: sessionID})
			return sendRequest(ipc.CmdSessionState, payload)
		},
	}
	cmd.Flags().Uint64Var(&sessionID, "session-id", 0, "session to query")
	cmd.MarkFlagRequired("session-id")
	return cmd
}

func destroySessionCmd() *cobra.Command {
	var sessionID uint64
	cmd := &cobra.Command{
		Use:   "destroy-session",
		Short: "Destroy a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, _ := json.Marshal(ipc.SessionIDRequest{SessionID: sessionID})
			return sendRequest(ipc.CmdDestroySession, payload)
		},
	}
	cmd.Flags().Uint64Var(&sessionID, "session-id", 0, "session to destroy")
	cmd.MarkFlagRequired("session-id")
	return cmd
}

func sendRequest(cmd ipc.CommandType, payload json.RawMessage) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("dial %s: %w", socketPath, err)
	}
	defer conn.Close()

	req, err := json.Marshal(ipc.Request{Cmd: cmd, Data: payload})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req = append(req, '\n')
	if _, err := conn.Write(req); err != nil {
		return fmt.Errorf("write request: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var resp ipc.Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("daemon error: %s", resp.Error)
	}

	fmt.Println(string(resp.Data))
	return nil
}
