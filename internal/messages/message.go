package messages

import "fmt"

func NewSdkMessage(level SdkLogLevel, component string, err error, formatString string, additionalInfo ...interface{}) *SdkMessage {
	return &SdkMessage{
		LogLevel:       level,
		Component:      component,
		Error:          err,
		FormatString:   formatString,
		AdditionalInfo: additionalInfo,
	}
}

func (sdkMsg *SdkMessage) ConsoleLog() {
	switch sdkMsg.LogLevel {
	case LOG_LEVEL_INFO, LOG_LEVEL_SUCCESS, LOG_LEVEL_WARNING:
		sdkMsg.formatMessage()
	case LOG_LEVEL_ERROR:
		sdkMsg.formatError()
	}
}

// ToError converts the message into a plain error so library code can
// return it instead of logging
func (sdkMsg *SdkMessage) ToError() error {
	text := fmt.Sprintf(sdkMsg.FormatString, sdkMsg.AdditionalInfo...)
	if sdkMsg.Error != nil {
		return fmt.Errorf("%s: %w", text, sdkMsg.Error)
	}
	return fmt.Errorf("%s", text)
}

func (sdkMsg *SdkMessage) formatMessage() {
	// [LOG_LEVEL] custom_message
	fmtString := "[%s] " + sdkMsg.FormatString
	additionalArgs := append([]interface{}{sdkMsg.LogLevel}, sdkMsg.AdditionalInfo...)
	msg := fmt.Sprintf(fmtString, additionalArgs...)
	switch sdkMsg.LogLevel {
	case LOG_LEVEL_INFO:
		msg = blue + msg + reset
	case LOG_LEVEL_SUCCESS:
		msg = green + msg + reset
	case LOG_LEVEL_WARNING:
		msg = yellow + msg + reset
	default:
		msg = white + msg + reset
	}
	fmt.Println(msg)
}

func (sdkMsg *SdkMessage) formatError() {
	// [LOG_LEVEL][COMPONENT] custom_message: error_message
	fmtString := "[%s][%s] " + sdkMsg.FormatString + ": [%v]"
	var additionalArgs []interface{}
	additionalArgs = append(additionalArgs, sdkMsg.LogLevel, sdkMsg.Component)
	additionalArgs = append(additionalArgs, sdkMsg.AdditionalInfo...)
	additionalArgs = append(additionalArgs, sdkMsg.Error)
	msg := fmt.Sprintf(fmtString, additionalArgs...)
	msg = red + msg + reset
	fmt.Println(msg)
}
