package protorec

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/aescanero/dago-node-cel/internal/eval/cel/value"
)

// setField assigns v to fd. Null leaves message fields unset.
func (r *Registry) setField(msg protoreflect.Message, fd protoreflect.FieldDescriptor, v value.Value) error {
	v = value.Unbox(v)
	switch {
	case fd.IsMap():
		m, ok := v.(value.Map)
		if !ok {
			return fmt.Errorf("expected map, got %s", v.Type())
		}
		dst := msg.NewField(fd).Map()
		for _, k := range m.Keys() {
			pk, err := r.toProto(fd.MapKey(), k)
			if err != nil {
				return err
			}
			mv, _ := m.Get(k)
			pv, err := r.toProto(fd.MapValue(), mv)
			if err != nil {
				return err
			}
			dst.Set(pk.MapKey(), pv)
		}
		msg.Set(fd, protoreflect.ValueOfMap(dst))
		return nil
	case fd.IsList():
		l, ok := v.(value.List)
		if !ok {
			return fmt.Errorf("expected list, got %s", v.Type())
		}
		dst := msg.NewField(fd).List()
		for _, e := range value.Elements(l) {
			pv, err := r.toProto(fd, e)
			if err != nil {
				return err
			}
			dst.Append(pv)
		}
		msg.Set(fd, protoreflect.ValueOfList(dst))
		return nil
	}
	if _, isNull := v.(value.Null); isNull && fd.Message() != nil && fd.Message().FullName() != "google.protobuf.Value" {
		return nil
	}
	pv, err := r.toProto(fd, v)
	if err != nil {
		return err
	}
	msg.Set(fd, pv)
	return nil
}

func (r *Registry) toProto(fd protoreflect.FieldDescriptor, v value.Value) (protoreflect.Value, error) {
	v = value.Unbox(v)
	mismatch := func() (protoreflect.Value, error) {
		return protoreflect.Value{}, fmt.Errorf("expected %s, got %s", fd.Kind(), v.Type())
	}
	switch fd.Kind() {
	case protoreflect.BoolKind:
		if b, ok := v.(value.Bool); ok {
			return protoreflect.ValueOfBool(bool(b)), nil
		}
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		if i, ok := v.(value.Int); ok {
			if i < math.MinInt32 || i > math.MaxInt32 {
				return protoreflect.Value{}, fmt.Errorf("int32 out of range: %d", i)
			}
			return protoreflect.ValueOfInt32(int32(i)), nil
		}
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		if i, ok := v.(value.Int); ok {
			return protoreflect.ValueOfInt64(int64(i)), nil
		}
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		if u, ok := v.(value.Uint); ok {
			if u > math.MaxUint32 {
				return protoreflect.Value{}, fmt.Errorf("uint32 out of range: %d", u)
			}
			return protoreflect.ValueOfUint32(uint32(u)), nil
		}
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		if u, ok := v.(value.Uint); ok {
			return protoreflect.ValueOfUint64(uint64(u)), nil
		}
	case protoreflect.FloatKind:
		if d, ok := v.(value.Double); ok {
			return protoreflect.ValueOfFloat32(float32(d)), nil
		}
	case protoreflect.DoubleKind:
		if d, ok := v.(value.Double); ok {
			return protoreflect.ValueOfFloat64(float64(d)), nil
		}
	case protoreflect.StringKind:
		if s, ok := v.(value.String); ok {
			return protoreflect.ValueOfString(string(s)), nil
		}
	case protoreflect.BytesKind:
		if b, ok := v.(value.Bytes); ok {
			return protoreflect.ValueOfBytes([]byte(b)), nil
		}
	case protoreflect.EnumKind:
		switch e := v.(type) {
		case value.Int:
			if e < math.MinInt32 || e > math.MaxInt32 {
				return protoreflect.Value{}, fmt.Errorf("enum value out of range: %d", e)
			}
			return protoreflect.ValueOfEnum(protoreflect.EnumNumber(e)), nil
		case value.Null:
			if fd.Enum().FullName() == nullValueEnum {
				return protoreflect.ValueOfEnum(0), nil
			}
		}
	case protoreflect.MessageKind, protoreflect.GroupKind:
		m, err := r.toMessage(fd.Message(), v)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfMessage(m), nil
	}
	return mismatch()
}

// toMessage builds a message of type md from v. Well-known types are built
// with their generated helpers and then transcoded into md.
func (r *Registry) toMessage(md protoreflect.MessageDescriptor, v value.Value) (protoreflect.Message, error) {
	if rec, ok := v.(*Record); ok {
		if rec.msg.Descriptor().FullName() == md.FullName() {
			return rec.msg, nil
		}
		if md.FullName() == "google.protobuf.Any" {
			packed, err := anypb.New(rec.msg.Interface())
			if err != nil {
				return nil, err
			}
			return transcode(packed, md)
		}
		return nil, fmt.Errorf("expected %s, got %s", md.FullName(), rec.TypeName())
	}

	var src proto.Message
	switch md.FullName() {
	case "google.protobuf.Duration":
		if d, ok := v.(value.Duration); ok {
			src = durationpb.New(d.Go())
		}
	case "google.protobuf.Timestamp":
		if ts, ok := v.(value.Timestamp); ok {
			src = timestamppb.New(ts.Time())
		}
	case "google.protobuf.Value", "google.protobuf.Struct", "google.protobuf.ListValue":
		native, err := value.ToNative(v)
		if err != nil {
			return nil, err
		}
		pv, err := structpb.NewValue(jsonCompatible(native))
		if err != nil {
			return nil, err
		}
		switch md.FullName() {
		case "google.protobuf.Struct":
			src = pv.GetStructValue()
		case "google.protobuf.ListValue":
			src = pv.GetListValue()
		default:
			src = pv
		}
	default:
		src = wrap(md.FullName(), v)
	}
	if src == nil || !src.ProtoReflect().IsValid() {
		return nil, fmt.Errorf("expected %s, got %s", md.FullName(), v.Type())
	}
	return transcode(src, md)
}

// wrap builds a wrapper message, or returns nil when v does not fit.
func wrap(name protoreflect.FullName, v value.Value) proto.Message {
	switch v := v.(type) {
	case value.Bool:
		if name == "google.protobuf.BoolValue" {
			return wrapperspb.Bool(bool(v))
		}
	case value.Int:
		switch name {
		case "google.protobuf.Int64Value":
			return wrapperspb.Int64(int64(v))
		case "google.protobuf.Int32Value":
			if v >= math.MinInt32 && v <= math.MaxInt32 {
				return wrapperspb.Int32(int32(v))
			}
		}
	case value.Uint:
		switch name {
		case "google.protobuf.UInt64Value":
			return wrapperspb.UInt64(uint64(v))
		case "google.protobuf.UInt32Value":
			if v <= math.MaxUint32 {
				return wrapperspb.UInt32(uint32(v))
			}
		}
	case value.Double:
		switch name {
		case "google.protobuf.DoubleValue":
			return wrapperspb.Double(float64(v))
		case "google.protobuf.FloatValue":
			return wrapperspb.Float(float32(v))
		}
	case value.String:
		if name == "google.protobuf.StringValue" {
			return wrapperspb.String(string(v))
		}
	case value.Bytes:
		if name == "google.protobuf.BytesValue" {
			return wrapperspb.Bytes([]byte(v))
		}
	}
	return nil
}

// transcode copies src into a message of type md through the wire format,
// so generated and dynamic messages can be mixed.
func transcode(src proto.Message, md protoreflect.MessageDescriptor) (protoreflect.Message, error) {
	if src.ProtoReflect().Descriptor() == md {
		return src.ProtoReflect(), nil
	}
	data, err := proto.Marshal(src)
	if err != nil {
		return nil, err
	}
	dst := dynamicpb.NewMessage(md)
	if err := proto.Unmarshal(data, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// jsonCompatible narrows the native forms structpb cannot hold.
func jsonCompatible(v any) any {
	switch v := v.(type) {
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	case []byte:
		return string(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = jsonCompatible(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = jsonCompatible(e)
		}
		return out
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return v
}
