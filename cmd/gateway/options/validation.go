package options

import (
	"fmt"
	"strconv"
)

func Validate(o *Options) []error {
	var errs []error
	if err := o.BaseOptions.ValidateAndApply(); err != nil {
		errs = append(errs, err)
	}

	if _, err := strconv.ParseUint(o.Port, 10, 16); err != nil {
		errs = append(errs, fmt.Errorf("invalid port %q", o.Port))
	}
	if len(o.MqttBroker) == 0 {
		errs = append(errs, fmt.Errorf("mqtt broker url must not be empty"))
	}

	return errs
}
