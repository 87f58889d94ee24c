package engine

import (
	"fmt"
	"time"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/topdown"
	"github.com/open-policy-agent/opa/v1/topdown/builtins"
	"github.com/open-policy-agent/opa/v1/types"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog/log"
)

func init() {
	rego.RegisterBuiltin1(totpVerify, func(bctx rego.BuiltinContext, op *ast.Term) (*ast.Term, error) {
		ret, err := builtinTotpVerify(bctx, op)
		if err != nil {
			log.Warn().
				Str("location", bctx.Location.String()).
				Msgf("%s: %v", totpVerify.Name, err)
			return nil, err
		}
		return ret, nil
	})
}

// totp_verify({"secret": s, "code": c}) checks an approval code. Optional
// keys: time (unix nanoseconds), skew (periods) and period (seconds).
var totpVerify = &rego.Function{
	Name: "totp_verify",
	Decl: types.NewFunction(types.Args(types.NewObject(
		[]*types.StaticProperty{
			types.NewStaticProperty("secret", types.S),
			types.NewStaticProperty("code", types.S),
		},
		types.NewDynamicProperty(types.S, types.N),
	)), types.B),
}

type totpArgs struct {
	secret string
	code   string
	at     time.Time
	opts   totp.ValidateOpts
}

func builtinTotpVerify(_ topdown.BuiltinContext, op *ast.Term) (*ast.Term, error) {
	args, err := parseTotpArgs(op)
	if err != nil {
		return nil, err
	}

	valid, err := totp.ValidateCustom(args.code, args.secret, args.at, args.opts)
	if err != nil {
		return nil, err
	}
	return ast.BooleanTerm(valid), nil
}

func parseTotpArgs(op *ast.Term) (*totpArgs, error) {
	obj, err := builtins.ObjectOperand(op.Value, 1)
	if err != nil {
		return nil, err
	}

	args := &totpArgs{
		at: time.Now(),
		opts: totp.ValidateOpts{
			Skew:      1,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		},
	}
	err = obj.Iter(func(keyTerm *ast.Term, valueTerm *ast.Term) error {
		key, err := builtins.StringOperand(keyTerm.Value, 1)
		if err != nil {
			return err
		}

		switch key {
		case "code":
			args.code, err = argString(key, valueTerm)
		case "secret":
			args.secret, err = argString(key, valueTerm)
		case "time", "skew", "period":
			var n int64
			n, err = argNumber(key, valueTerm)
			switch key {
			case "time":
				args.at = time.Unix(0, n)
			case "skew":
				args.opts.Skew = uint(n)
			default:
				args.opts.Period = uint(n)
			}
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	if args.code == "" || args.secret == "" {
		return nil, builtins.NewOperandErr(1, "argument `code` and `secret` must not be empty")
	}
	return args, nil
}

func argError(key string, got *ast.Term, expected string) error {
	return fmt.Errorf("argument `%s` must be a %s, got %s", key, expected, ast.TypeName(got.Value))
}

func argString(key ast.String, value *ast.Term) (string, error) {
	v, err := builtins.StringOperand(value.Value, 1)
	if err != nil {
		return "", argError(string(key), value, "string")
	}
	return string(v), nil
}

func argNumber(key ast.String, value *ast.Term) (int64, error) {
	v, err := builtins.NumberOperand(value.Value, 1)
	if err != nil {
		return 0, argError(string(key), value, "number")
	}
	n, _ := v.Int64()
	return n, nil
}
