// Package property implements named, strongly-typed values with a canonical
// string encoding, an optional closed set of permitted values and delimiter
// based list encoding.
//
// A Typed[T] property couples a value with a Codec[T]. The codec is the only
// place that knows how a value looks on the wire, so every property type
// round-trips: Decode(Encode(v)) == v.
//
//	retries, err := property.NewInt("retries", 3, property.WithFixedValues("1", "3", "5"))
//	if err != nil {
//		return err
//	}
//	err = retries.Set(4) // errors.Is(err, property.ErrConstraintViolation)
//
// # Lists
//
// ListCodec turns any scalar codec into a codec for []T. Elements are joined
// with a delimiter (comma by default). Decoding trims each element and accepts
// an optional surrounding pair of brackets, so "[a, b]" and "a,b" decode the
// same way. The empty string is the empty list.
//
//	users, _ := property.NewList("users", property.StringCodec{}, []string{"alice", "bob"})
//	users.Encode() // "alice,bob"
//
// # Registry
//
// Properties stored by features and strategies are handled through the
// type-erased Property interface. The registry maps a Type discriminator to a
// factory so a property can be rebuilt from its Record (type, uid, encoded
// value) without reflection. List types are resolved from the element type:
//
//	p, err := property.Create("regions", property.ListType(property.TypeString), "eu,us")
//
// Custom codecs are added with RegisterCodec, which also registers their list
// type. Register installs a bare factory for a scalar type.
package property
