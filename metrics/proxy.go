package metrics

import (
	"context"
	"reflect"

	"go.opencensus.io/tag"
)

var contextType = reflect.TypeOf((*context.Context)(nil)).Elem()

// Proxy wraps every function field of the struct out points to, such as a
// jsonrpc client's method table, so each call records LedgerRequestDuration
// tagged with the field name. Fields that do not take a context first are left alone.
func Proxy(out interface{}) {
	rint := reflect.ValueOf(out).Elem()

	for f := 0; f < rint.NumField(); f++ {
		field := rint.Type().Field(f)
		if field.Type.Kind() != reflect.Func || rint.Field(f).IsNil() {
			continue
		}
		if field.Type.NumIn() == 0 || field.Type.In(0) != contextType {
			continue
		}

		name := field.Name
		fn := reflect.ValueOf(rint.Field(f).Interface())
		rint.Field(f).Set(reflect.MakeFunc(field.Type, func(args []reflect.Value) (results []reflect.Value) {
			ctx := args[0].Interface().(context.Context)
			// upsert function name into context
			ctx, _ = tag.New(ctx, tag.Upsert(API, name))
			stop := Timer(ctx, LedgerRequestDuration)
			defer stop()
			// pass tagged ctx back into function call
			args[0] = reflect.ValueOf(ctx)
			return fn.Call(args)
		}))
	}
}
