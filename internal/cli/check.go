package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd(rc *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Probe the gateway's API configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			chk := rc.buildEngine().CheckAPIConfiguration(cmd.Context())

			if chk.Connected {
				fmt.Println("connected: yes")
			} else {
				fmt.Println("connected: no")
			}
			if len(chk.Accounts) > 0 {
				fmt.Printf("accounts:  %v\n", chk.Accounts)
			}
			fmt.Printf("positions: %d\n", chk.Positions)

			for _, issue := range chk.Issues {
				fmt.Printf("ISSUE  %s\n", issue)
			}
			for _, fix := range chk.Remediation {
				fmt.Printf("  -> %s\n", fix)
			}

			if !chk.OK() {
				return fmt.Errorf("api configuration check failed (%d issues)", len(chk.Issues))
			}
			fmt.Println("api configuration ok")
			return nil
		},
	}
}
