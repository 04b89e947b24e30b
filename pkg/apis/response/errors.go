package response

var errors = map[ErrCode]string{
	ErrCodeMalformedJSON:             "The JSON you provided was not well-formed or did not validate against our published format.",
	ErrCodeRequestBody:               "Request body error",
	ErrCodeLegalActionNotFound:       "Legal action not found.",
	ErrCodeResourceExists:            "Resource %s already exists.",
	ErrCodeResourceNotFound:          "Resource %s not found.",
	ErrCodeDeviceNotFound:            "Device %s not found.",
	ErrCodeDeviceNotConnect:          "Device %s not connected.",
	ErrCodeDeviceNoResponse:          "Device %s gave no response, command outcome unknown.",
	ErrCodePositionOutOfRange:        "Position %d out of range, must be within 0-100.",
	ErrCodeAddressByteInvalid:        "Address byte must be within 1-254.",
	ErrCodeActionUnSupported:         "Action %s not supported.",
	ErrCodeDeviceOperatorUnSupported: "Operator %s not supported.",
	ErrCodeTooManyJsonPatchOps:       "Too many operations in one json patch request, no more than %d.",
}

// !!! IMPORTANT PLEASE READ FIRST !!!
// You SHOULD add new code at the end of enum firstly.

var ErrMalformedJSON = &responseError{
	Code:    ErrCodeMalformedJSON,
	Message: errors[ErrCodeMalformedJSON],
}

var ErrRequestBody = &responseError{
	Code:    ErrCodeRequestBody,
	Message: errors[ErrCodeRequestBody],
}

var ErrLegalActionNotFound = &responseError{
	Code:    ErrCodeLegalActionNotFound,
	Message: errors[ErrCodeLegalActionNotFound],
}

var ErrAddressByteInvalid = &responseError{
	Code:    ErrCodeAddressByteInvalid,
	Message: errors[ErrCodeAddressByteInvalid],
}

func ErrDeviceNotFound(id string) *responseError {
	return generateError(ErrCodeDeviceNotFound, id)
}

func ErrDeviceNotConnect(id string) *responseError {
	return generateError(ErrCodeDeviceNotConnect, id)
}

func ErrDeviceNoResponse(id string) *responseError {
	return generateError(ErrCodeDeviceNoResponse, id)
}

func ErrPositionOutOfRange(position int) *responseError {
	return generateError(ErrCodePositionOutOfRange, position)
}

func ErrActionUnSupported(action string) *responseError {
	return generateError(ErrCodeActionUnSupported, action)
}

func ErrDeviceOperatorUnSupported(operator string) *responseError {
	return generateError(ErrCodeDeviceOperatorUnSupported, operator)
}

func ErrTooManyJsonPatchOperations(max int) *responseError {
	return generateError(ErrCodeTooManyJsonPatchOps, max)
}
