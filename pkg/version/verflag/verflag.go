package verflag

import (
	"fmt"
	"os"

	"dooyagateway/pkg/version"
	flag "github.com/spf13/pflag"
)

var versionFlag = false

func AddFlags(fs *flag.FlagSet) {
	fs.BoolVar(&versionFlag, "version", versionFlag, "Print version information and quit")
}

func PrintAndExitIfRequested() {
	if versionFlag {
		fmt.Printf("%s %s\n", os.Args[0], version.Get())
		os.Exit(0)
	}
}
