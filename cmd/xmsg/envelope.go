// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luxfi/xmsg"
	"github.com/luxfi/xmsg/replay"
)

var errMissingFlag = errors.New("missing flag")

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a secp256k1 signing key",
	RunE: func(cmd *cobra.Command, _ []string) error {
		signer, err := xmsg.GenerateLocalSigner()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Private key: 0x%s\n", signer.PrivateKeyHex())
		fmt.Fprintf(out, "Public key:  %s\n", hexutil.Encode(signer.PublicKey()))
		fmt.Fprintf(out, "Address:     %s\n", signer.Address())
		return nil
	},
}

var sigpackCmd = &cobra.Command{
	Use:   "sigpack",
	Short: "Pack a 65 byte signature into its 64 byte compact form",
	Long: `Pack an [r || s || v] signature into the EIP-2098 compact form. With
--key and --digest the digest is signed first.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sigHex, _ := cmd.Flags().GetString("signature")
		keyHex, _ := cmd.Flags().GetString("key")
		digestHex, _ := cmd.Flags().GetString("digest")

		var sig xmsg.Signature
		switch {
		case sigHex != "":
			b, err := decodeHex(sigHex)
			if err != nil {
				return fmt.Errorf("invalid signature hex: %w", err)
			}
			if sig, err = xmsg.SignatureFromBytes(b); err != nil {
				return err
			}
		case keyHex != "" && digestHex != "":
			signer, err := xmsg.LocalSignerFromHex(keyHex)
			if err != nil {
				return err
			}
			digest, err := decodeDigest(digestHex)
			if err != nil {
				return err
			}
			if sig, err = signer.Sign(digest); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: --signature or both --key and --digest", errMissingFlag)
		}

		compact, err := xmsg.EncodeCompact(sig)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), compact)
		return nil
	},
}

var sigunpackCmd = &cobra.Command{
	Use:   "sigunpack",
	Short: "Unpack a 64 byte compact signature",
	Long:  `Unpack an EIP-2098 compact signature. With --digest the signer address is recovered.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		compactHex, _ := cmd.Flags().GetString("compact")
		digestHex, _ := cmd.Flags().GetString("digest")

		b, err := decodeHex(compactHex)
		if err != nil {
			return fmt.Errorf("invalid compact signature hex: %w", err)
		}
		compact, err := xmsg.CompactSignatureFromBytes(b)
		if err != nil {
			return err
		}
		sig, err := xmsg.DecodeCompact(compact)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "r: %s\n", hexutil.Encode(sig.R[:]))
		fmt.Fprintf(out, "s: %s\n", hexutil.Encode(sig.S[:]))
		fmt.Fprintf(out, "v: %d (legacy %d)\n", sig.V, sig.LegacyV())
		fmt.Fprintf(out, "signature: %s\n", hexutil.Encode(sig.Bytes()))
		if digestHex == "" {
			return nil
		}
		digest, err := decodeDigest(digestHex)
		if err != nil {
			return err
		}
		signer, err := xmsg.RecoverAddress(digest, sig)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "signer: %s\n", signer)
		return nil
	},
}

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Encode a payload into a message envelope",
	RunE: func(cmd *cobra.Command, _ []string) error {
		variantName, _ := cmd.Flags().GetString("variant")
		payloadHex, _ := cmd.Flags().GetString("payload")
		selectorHex, _ := cmd.Flags().GetString("selector")
		keyHex, _ := cmd.Flags().GetString("key")
		domainHex, _ := cmd.Flags().GetString("domain")

		variant, err := xmsg.ParseVariant(variantName)
		if err != nil {
			return err
		}
		payload, err := decodeHex(payloadHex)
		if err != nil {
			return fmt.Errorf("invalid payload hex: %w", err)
		}
		var selector xmsg.Selector
		if selectorHex != "" {
			b, err := decodeHex(selectorHex)
			if err != nil {
				return fmt.Errorf("invalid selector hex: %w", err)
			}
			if selector, err = xmsg.SelectorFromBytes(b); err != nil {
				return err
			}
		}
		var signer xmsg.Signer
		if keyHex != "" {
			if signer, err = xmsg.LocalSignerFromHex(keyHex); err != nil {
				return err
			}
		}
		domain := common.HexToAddress(domainHex)

		encoded, tag, err := encodeEnvelope(xmsg.NewEncoder(signer, domain), variant, selector, payload)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if variant.Unique() {
			fmt.Fprintf(out, "tag: %s\n", tag)
		}
		fmt.Fprintf(out, "envelope: %s\n", hexutil.Encode(encoded))
		return nil
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode and authenticate a message envelope",
	RunE: func(cmd *cobra.Command, _ []string) error {
		variantName, _ := cmd.Flags().GetString("variant")
		dataHex, _ := cmd.Flags().GetString("data")
		signerHex, _ := cmd.Flags().GetString("signer")

		variant, err := xmsg.ParseVariant(variantName)
		if err != nil {
			return err
		}
		if variant.Signed() && !common.IsHexAddress(signerHex) {
			return fmt.Errorf("%w: --signer is required for %s envelopes", errMissingFlag, variant)
		}
		data, err := decodeHex(dataHex)
		if err != nil {
			return fmt.Errorf("invalid envelope hex: %w", err)
		}

		guard := replay.NewMemoryGuard(zap.NewNop())
		decoder := xmsg.NewDecoder(common.HexToAddress(signerHex), guard)
		msg, err := decodeEnvelope(decoder, variant, data)
		if err != nil {
			return err
		}
		return printMessage(cmd.OutOrStdout(), variant, msg)
	},
}

func init() {
	sigpackCmd.Flags().StringP("signature", "s", "", "65 byte [r || s || v] signature (hex)")
	sigpackCmd.Flags().StringP("key", "k", "", "Private key to sign with (hex)")
	sigpackCmd.Flags().StringP("digest", "d", "", "32 byte digest to sign (hex)")

	sigunpackCmd.Flags().StringP("compact", "c", "", "64 byte compact signature (hex)")
	sigunpackCmd.Flags().StringP("digest", "d", "", "Digest to recover the signer from (hex)")
	_ = sigunpackCmd.MarkFlagRequired("compact")

	encodeCmd.Flags().String("variant", xmsg.VariantSignedUniqueMessage.String(), "Envelope variant")
	encodeCmd.Flags().StringP("payload", "p", "", "Payload, or message data for selector variants (hex)")
	encodeCmd.Flags().String("selector", "", "Four byte selector (hex)")
	encodeCmd.Flags().StringP("key", "k", "", "Private key to sign with (hex)")
	encodeCmd.Flags().String("domain", "", "Sender address the tag is bound to")

	decodeCmd.Flags().String("variant", xmsg.VariantSignedUniqueMessage.String(), "Envelope variant")
	decodeCmd.Flags().StringP("data", "d", "", "Envelope (hex)")
	decodeCmd.Flags().String("signer", "", "Address the envelope must be signed by")
	_ = decodeCmd.MarkFlagRequired("data")
}

// message is the decoded form of any envelope variant
type message struct {
	tag      xmsg.Tag
	selector xmsg.Selector
	payload  []byte
}

func encodeEnvelope(enc *xmsg.Encoder, variant xmsg.Variant, selector xmsg.Selector, payload []byte) ([]byte, xmsg.Tag, error) {
	switch variant {
	case xmsg.VariantPlain:
		b, err := enc.Plain(payload)
		return b, xmsg.Tag{}, err
	case xmsg.VariantUnique:
		return enc.Unique(payload)
	case xmsg.VariantSigned:
		b, err := enc.Signed(payload)
		return b, xmsg.Tag{}, err
	case xmsg.VariantSignedUnique:
		return enc.SignedUnique(payload)
	case xmsg.VariantSignedUniqueMessage:
		return enc.SignedUniqueMessage(selector, payload)
	case xmsg.VariantUniqueMessage:
		return enc.UniqueMessage(selector, payload)
	default:
		return nil, xmsg.Tag{}, fmt.Errorf("unsupported variant %s", variant)
	}
}

func decodeEnvelope(dec *xmsg.Decoder, variant xmsg.Variant, data []byte) (*message, error) {
	var (
		payload []byte
		err     error
	)
	switch variant {
	case xmsg.VariantPlain:
		payload, err = dec.Plain(data)
	case xmsg.VariantUnique:
		payload, err = dec.Unique(data)
	case xmsg.VariantSigned:
		payload, err = dec.Signed(data)
	case xmsg.VariantSignedUnique:
		payload, err = dec.SignedUnique(data)
	case xmsg.VariantSignedUniqueMessage, xmsg.VariantUniqueMessage:
		var msg *xmsg.Message
		if variant == xmsg.VariantSignedUniqueMessage {
			msg, err = dec.SignedUniqueMessage(data)
		} else {
			msg, err = dec.UniqueMessage(data)
		}
		if err != nil {
			return nil, err
		}
		return &message{tag: msg.Tag, selector: msg.Selector, payload: msg.Data}, nil
	default:
		return nil, fmt.Errorf("unsupported variant %s", variant)
	}
	if err != nil {
		return nil, err
	}
	m := &message{payload: payload}
	if variant.Unique() {
		// Decoding succeeded, so the envelope is long enough to hold a tag
		m.tag, _ = xmsg.PeekTag(data)
	}
	return m, nil
}

func printMessage(out io.Writer, variant xmsg.Variant, m *message) error {
	if variant.Unique() {
		fmt.Fprintf(out, "tag: %s\n", m.tag)
	}
	if variant == xmsg.VariantSignedUniqueMessage || variant == xmsg.VariantUniqueMessage {
		fmt.Fprintf(out, "selector: %s\n", m.selector)
	}
	_, err := fmt.Fprintf(out, "payload: %s\n", hexutil.Encode(m.payload))
	return err
}

// decodeHex accepts hex with or without a 0x prefix
func decodeHex(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	return hexutil.Decode(s)
}

func decodeDigest(s string) (common.Hash, error) {
	b, err := decodeHex(s)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid digest hex: %w", err)
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("digest must be %d bytes, got %d", common.HashLength, len(b))
	}
	return common.BytesToHash(b), nil
}
