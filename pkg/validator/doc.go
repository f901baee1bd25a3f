// Package validator provides small composable field rules.
//
// Rules are built per field and evaluated by [Apply], which returns
// [ValidationErrors] listing every failing field:
//
//	err := validator.Apply(
//		validator.RequiredString("recipient_email", in.To),
//		validator.Email("recipient_email", in.To),
//		validator.RangeNum("port", in.Port, 1, 65025).
//			WithMessage("Port must be an integer value between 1 and 65025"),
//	)
//	if ve := validator.ExtractValidationErrors(err); ve != nil {
//		// ve.Fields() -> map[field][]message
//	}
//
// Built-in rules carry a TranslationKey so messages can be localized with
// [ValidationErrors.Translate].
package validator
